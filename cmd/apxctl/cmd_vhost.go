package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	apx "github.com/yuriy-kovalchuk/yk-vhost-manager/approximated"
)

func newCmdVHost(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:                "vhost",
		Aliases:            []string{"vh"},
		Short:              "Manage virtual hosts",
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableSuggestions: true,
		RunE:               func(cmd *cobra.Command, args []string) error { return fmt.Errorf("invalid command") },
	}
	cmd.AddCommand(
		newCmdVHostCreate(a),
		newCmdVHostGet(a),
		newCmdVHostUpdate(a),
		newCmdVHostDelete(a),
	)
	return cmd
}

// flagOptions are the boolean settings shared by create and update.
var flagOptions = []struct{ name, usage string }{
	{"redirect", "Redirect to the target instead of proxying (target must include its scheme)"},
	{"exact-match", "Only match requests whose full URL equals the incoming address"},
	{"redirect-www", "Also redirect www.<incoming> to the incoming address"},
	{"keep-host", "Keep the incoming Host header when proxying"},
}

func addOptionFlags(fs *pflag.FlagSet) {
	for _, f := range flagOptions {
		fs.Bool(f.name, false, f.usage)
	}
}

// optionalBool returns nil unless the flag was set on the command line, so
// unset options are left to the server.
func optionalBool(fs *pflag.FlagSet, name string) *bool {
	if !fs.Changed(name) {
		return nil
	}
	v, _ := fs.GetBool(name)
	return apx.Bool(v)
}

func (a *app) withClient(cmd *cobra.Command, fn func(ctx context.Context, c *apx.Client) (any, error)) error {
	c, err := a.client()
	if err != nil {
		return err
	}
	out, err := fn(cmd.Context(), c)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), a.output, out)
}

func newCmdVHostCreate(a *app) *cobra.Command {
	var ports string

	cmd := &cobra.Command{
		Use:   "create INCOMING_ADDRESS TARGET_ADDRESS",
		Short: "Create a virtual host",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := cmd.Flags()
			req := apx.CreateVirtualHostRequest{
				IncomingAddress: args[0],
				TargetAddress:   args[1],
				TargetPorts:     ports,
				Redirect:        optionalBool(fs, "redirect"),
				ExactMatch:      optionalBool(fs, "exact-match"),
				RedirectWWW:     optionalBool(fs, "redirect-www"),
				KeepHost:        optionalBool(fs, "keep-host"),
			}
			return a.withClient(cmd, func(ctx context.Context, c *apx.Client) (any, error) {
				return c.CreateVirtualHost(ctx, req)
			})
		},
	}

	cmd.Flags().StringVar(&ports, "ports", "", "Target ports (server default 443)")
	addOptionFlags(cmd.Flags())
	return cmd
}

func newCmdVHostGet(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get INCOMING_ADDRESS",
		Short: "Show a virtual host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, func(ctx context.Context, c *apx.Client) (any, error) {
				return c.GetVirtualHost(ctx, args[0])
			})
		},
	}
}

func newCmdVHostUpdate(a *app) *cobra.Command {
	var incoming, target, ports string

	cmd := &cobra.Command{
		Use:   "update CURRENT_INCOMING_ADDRESS",
		Short: "Update a virtual host; only the given flags are changed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := cmd.Flags()
			req := apx.UpdateVirtualHostRequest{
				CurrentIncomingAddress: args[0],
				IncomingAddress:        incoming,
				TargetAddress:          target,
				TargetPorts:            ports,
				Redirect:               optionalBool(fs, "redirect"),
				ExactMatch:             optionalBool(fs, "exact-match"),
				RedirectWWW:            optionalBool(fs, "redirect-www"),
				KeepHost:               optionalBool(fs, "keep-host"),
			}
			return a.withClient(cmd, func(ctx context.Context, c *apx.Client) (any, error) {
				return c.UpdateVirtualHost(ctx, req)
			})
		},
	}

	cmd.Flags().StringVar(&incoming, "incoming", "", "New incoming address")
	cmd.Flags().StringVar(&target, "target", "", "New target address")
	cmd.Flags().StringVar(&ports, "ports", "", "New target ports")
	addOptionFlags(cmd.Flags())
	return cmd
}

func newCmdVHostDelete(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete INCOMING_ADDRESS",
		Short: "Delete a virtual host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			msg, err := c.DeleteVirtualHost(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}
