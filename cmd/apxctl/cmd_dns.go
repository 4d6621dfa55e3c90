package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	apx "github.com/yuriy-kovalchuk/yk-vhost-manager/approximated"
)

// dnsCheck matches the method expressions of the client's DNS checks.
type dnsCheck func(c *apx.Client, ctx context.Context, records []apx.RecordQuery) ([]apx.RecordResult, error)

func newCmdDNS(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:                "dns",
		Short:              "Check DNS records through the API",
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableSuggestions: true,
		RunE:               func(cmd *cobra.Command, args []string) error { return fmt.Errorf("invalid command") },
	}
	cmd.AddCommand(
		newCmdDNSCheck(a, "exist", "Check that each record contains the expected value",
			(*apx.Client).CheckDNSRecordsExist),
		newCmdDNSCheck(a, "match", "Check that each record has exactly the expected value",
			(*apx.Client).CheckDNSRecordsMatchExactly),
	)
	return cmd
}

func newCmdDNSCheck(a *app, use, short string, check dnsCheck) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   use + " ADDRESS,TYPE,VALUE...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := parseRecords(args)
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			results, err := check(c, cmd.Context(), records)
			if err != nil {
				return err
			}
			if err := render(cmd.OutOrStdout(), a.output, results); err != nil {
				return err
			}
			if strict {
				for _, r := range results {
					if !r.Match {
						return fmt.Errorf("%s %s does not match %q", r.Address, r.Type, r.MatchAgainst)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when any record does not match")
	return cmd
}

// parseRecords reads "address,type,value" arguments. The value may itself
// contain commas, as TXT records often do.
func parseRecords(args []string) ([]apx.RecordQuery, error) {
	records := make([]apx.RecordQuery, 0, len(args))
	for _, arg := range args {
		parts := strings.SplitN(arg, ",", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid record %q (want ADDRESS,TYPE,VALUE)", arg)
		}
		records = append(records, apx.RecordQuery{
			Address:      parts[0],
			Type:         strings.ToLower(parts[1]),
			MatchAgainst: parts[2],
		})
	}
	return records, nil
}
