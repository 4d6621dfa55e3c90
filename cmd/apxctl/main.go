package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	apx "github.com/yuriy-kovalchuk/yk-vhost-manager/approximated"
)

var version = "dev"

// app carries the global flags shared by every subcommand.
type app struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	output  string
	verbose bool

	log logr.Logger
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newRootCmd() *cobra.Command {
	a := &app{log: logr.Discard()}

	cmd := &cobra.Command{
		Use:     "apxctl",
		Short:   "Manage Approximated virtual hosts and check DNS records",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&a.apiKey, "api-key", "", "API key (env APPROXIMATED_API_KEY)")
	cmd.PersistentFlags().StringVar(&a.baseURL, "base-url", envOr("APPROXIMATED_BASE_URL", apx.DefaultBaseURL), "API base URL (env APPROXIMATED_BASE_URL)")
	cmd.PersistentFlags().DurationVar(&a.timeout, "timeout", 30*time.Second, "Per-request timeout")
	cmd.PersistentFlags().StringVarP(&a.output, "output", "o", "yaml", "Output format (yaml|json)")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log requests to stderr")

	cmd.PersistentPreRunE = func(c *cobra.Command, _ []string) error {
		// Read after parsing so the key never appears as a flag default in help.
		if a.apiKey == "" {
			a.apiKey = os.Getenv("APPROXIMATED_API_KEY")
		}
		if a.output != "yaml" && a.output != "json" {
			return fmt.Errorf("invalid --output %q (want yaml or json)", a.output)
		}
		if a.verbose {
			a.log = zap.New(zap.UseDevMode(true), zap.WriteTo(c.ErrOrStderr()))
		}
		return nil
	}

	cmd.AddCommand(newCmdVersion())
	cmd.AddCommand(newCmdVHost(a))
	cmd.AddCommand(newCmdDNS(a))
	return cmd
}

// client builds an API client from the global flags.
func (a *app) client() (*apx.Client, error) {
	return apx.New(a.apiKey,
		apx.WithBaseURL(a.baseURL),
		apx.WithHTTPClient(&http.Client{Timeout: a.timeout}),
		apx.WithUserAgent("apxctl/"+version),
		apx.WithLogger(a.log.WithName("approximated")),
	)
}

func newCmdVersion() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "apxctl version %s\n", version)
		},
	}
}

// printError writes err to w, listing per-field messages for validation failures.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
	e, ok := apx.AsError(err)
	if !ok || e.Kind != apx.ValidationFailure {
		return
	}
	for _, field := range sortedKeys(e.Fields) {
		for _, msg := range e.Fields[field] {
			fmt.Fprintf(w, "  %s: %s\n", field, msg)
		}
	}
}

func main() {
	root := newRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}
