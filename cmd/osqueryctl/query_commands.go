package main

import (
	"fmt"
	"strings"

	"github.com/osquery/osquery-go/gen/osquery"
	"github.com/spf13/cobra"

	"osqueryctl/internal/client"
)

type spawnOptions struct {
	enabled bool
	binary  string
}

func addSpawnFlags(cmd *cobra.Command, opts *spawnOptions) {
	cmd.Flags().BoolVar(&opts.enabled, "spawn", false, "Start a private osqueryd for this command and stop it afterwards")
	cmd.Flags().StringVar(&opts.binary, "osqueryd", "", "osqueryd binary used with --spawn (defaults to daemon.binary)")
}

func newQueryCommand(ctx *commandContext) *cobra.Command {
	var spawn spawnOptions
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a SQL query and print the result rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sql := strings.TrimSpace(args[0])
			return ctx.withHandle(cmd, spawn, func(h *client.Handle) error {
				resp, err := h.Query(sql)
				if err != nil {
					return err
				}
				if err := extensionStatusError(resp.GetStatus()); err != nil {
					return err
				}
				if ctx.outputJSON(asJSON) {
					return writeJSON(cmd, rowsOrEmpty(resp.Response))
				}
				fmt.Fprint(cmd.OutOrStdout(), renderRows(resp.Response))
				return nil
			})
		},
	}

	addSpawnFlags(cmd, &spawn)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print rows as JSON")
	return cmd
}

func newColumnsCommand(ctx *commandContext) *cobra.Command {
	var spawn spawnOptions
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "columns <sql>",
		Short: "Show the result columns a query would produce",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sql := strings.TrimSpace(args[0])
			return ctx.withHandle(cmd, spawn, func(h *client.Handle) error {
				resp, err := h.Columns(sql)
				if err != nil {
					return err
				}
				if err := extensionStatusError(resp.GetStatus()); err != nil {
					return err
				}
				columns := flattenColumns(resp.Response)
				if ctx.outputJSON(asJSON) {
					return writeJSON(cmd, columns)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderColumns(columns))
				return nil
			})
		},
	}

	addSpawnFlags(cmd, &spawn)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print columns as JSON")
	return cmd
}

func newPingCommand(ctx *commandContext) *cobra.Command {
	var spawn spawnOptions

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check that the extension manager answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHandle(cmd, spawn, func(h *client.Handle) error {
				status, err := h.Ping()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				kind := statusOK
				if status.GetCode() != 0 {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine("Extension manager", kind, status.GetMessage(), shouldColorize(out)))
				fmt.Fprintln(out, renderStatusLine("Socket", statusInfo, h.SocketPath(), shouldColorize(out)))
				if kind != statusOK {
					return extensionStatusError(status)
				}
				return nil
			})
		},
	}

	addSpawnFlags(cmd, &spawn)
	return cmd
}

// extensionStatusError converts a non-zero extension status into an error.
func extensionStatusError(status *osquery.ExtensionStatus) error {
	if status == nil {
		return fmt.Errorf("osqueryd returned no status")
	}
	if status.GetCode() == 0 {
		return nil
	}
	return fmt.Errorf("osqueryd returned status %d: %s", status.GetCode(), status.GetMessage())
}

func rowsOrEmpty(rows osquery.ExtensionPluginResponse) []map[string]string {
	if rows == nil {
		return []map[string]string{}
	}
	return rows
}
