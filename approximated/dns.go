package approximated

import (
	"context"
	"net/http"
)

// CheckDNSRecordsExist reports, for each query, whether MatchAgainst is among
// the address's records of that type. Other values may also be present.
// Results are in query order.
//
//	POST /dns/check-records-exist
func (c *Client) CheckDNSRecordsExist(ctx context.Context, records []RecordQuery) ([]RecordResult, error) {
	return c.checkDNS(ctx, "check dns records exist", "/dns/check-records-exist", records)
}

// CheckDNSRecordsMatchExactly reports, for each query, whether exactly one
// record exists at the address and its value equals MatchAgainst. Results are
// in query order.
//
//	POST /dns/check-records-match-exactly
func (c *Client) CheckDNSRecordsMatchExactly(ctx context.Context, records []RecordQuery) ([]RecordResult, error) {
	return c.checkDNS(ctx, "check dns records match exactly", "/dns/check-records-match-exactly", records)
}

func (c *Client) checkDNS(ctx context.Context, op, path string, records []RecordQuery) ([]RecordResult, error) {
	if records == nil {
		records = []RecordQuery{}
	}
	r := request{
		op:     op,
		method: http.MethodPost,
		path:   path,
		body:   dnsCheckRequest{Records: records},
	}
	resp, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	out, err := decodeBare[dnsCheckResponse](r, resp)
	if err != nil {
		return nil, err
	}
	return *out.Records, nil
}
