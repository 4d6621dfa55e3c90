package controller

import (
	"fmt"
	"strings"

	gatewayv1 "sigs.k8s.io/gateway-api/apis/v1"

	"github.com/yuriy-kovalchuk/yk-vhost-manager/internal/config"
)

// FormatHTTPRoute returns a human-readable summary of an HTTPRoute and the
// virtual host target each of its hostnames maps to.
func FormatHTTPRoute(route *gatewayv1.HTTPRoute, targets *config.TargetMap) string {
	var b strings.Builder

	fmt.Fprintf(&b, "HTTPRoute %s/%s\n", route.Namespace, route.Name)

	if len(route.Spec.Hostnames) > 0 {
		fmt.Fprintf(&b, "  Hostnames:\n")
		for _, h := range route.Spec.Hostnames {
			target, ok := targets.Lookup(string(h))
			if !ok {
				fmt.Fprintf(&b, "    - %s (unmapped)\n", h)
				continue
			}
			fmt.Fprintf(&b, "    - %s -> %s", h, target.Address)
			if target.Ports != "" {
				fmt.Fprintf(&b, ":%s", target.Ports)
			}
			if target.DNSValue != "" {
				fmt.Fprintf(&b, " dns=%s", target.DNSValue)
			}
			fmt.Fprintln(&b)
		}
	}

	if len(route.Spec.ParentRefs) > 0 {
		fmt.Fprintf(&b, "  ParentRefs:\n")
		for _, ref := range route.Spec.ParentRefs {
			ns := "<same>"
			if ref.Namespace != nil {
				ns = string(*ref.Namespace)
			}
			section := ""
			if ref.SectionName != nil {
				section = fmt.Sprintf(" sectionName=%s", *ref.SectionName)
			}
			fmt.Fprintf(&b, "    - %s/%s%s\n", ns, ref.Name, section)
		}
	}

	return b.String()
}
