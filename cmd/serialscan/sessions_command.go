package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"serialscan/internal/ipc"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and manage recorded scan sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	sessionsCmd.AddCommand(newSessionsListCommand(ctx))
	sessionsCmd.AddCommand(newSessionsLastCommand(ctx))
	sessionsCmd.AddCommand(newSessionsClearCommand(ctx))
	sessionsCmd.AddCommand(newSessionsHealthCommand(ctx))

	return sessionsCmd
}

func newSessionsListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var jsonOutput bool

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SessionsList(statuses)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}
				if len(resp.Sessions) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No sessions recorded")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderSessionsTable(resp.Sessions))
				return nil
			})
		},
	}

	listCmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (active, locked, abandoned)")
	listCmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit sessions as JSON")

	return listCmd
}

func newSessionsLastCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	lastCmd := &cobra.Command{
		Use:   "last",
		Short: "Show the most recently locked serial",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.LastLocked()
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}
				if !resp.Found {
					fmt.Fprintln(cmd.OutOrStdout(), "No locked sessions recorded")
					return nil
				}
				session := resp.Session
				fmt.Fprintf(cmd.OutOrStdout(), "Serial %s locked at %s (confidence %s, %d frames, session %s)\n",
					session.Serial,
					formatSessionTime(session.FinishedAt),
					formatConfidence(session.Confidence),
					session.Frames,
					session.ID,
				)
				return nil
			})
		},
	}

	lastCmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the session as JSON")

	return lastCmd
}

func newSessionsClearCommand(ctx *commandContext) *cobra.Command {
	var abandonedOnly bool

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove recorded sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SessionsClear(abandonedOnly)
				if err != nil {
					return err
				}
				noun := "session"
				if resp.Removed != 1 {
					noun = "sessions"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d %s\n", resp.Removed, noun)
				return nil
			})
		},
	}

	clearCmd.Flags().BoolVar(&abandonedOnly, "abandoned", false, "Only remove abandoned sessions")

	return clearCmd
}

func newSessionsHealthCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Show session store diagnostics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				counts, err := client.SessionsHealth()
				if err != nil {
					return err
				}
				db, err := client.DatabaseHealth()
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, struct {
						Sessions *ipc.SessionsHealthResponse `json:"sessions"`
						Database *ipc.DatabaseHealthResponse `json:"database"`
					}{counts, db})
				}
				renderSessionsHealth(cmd, counts, db)
				return nil
			})
		},
	}

	healthCmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit diagnostics as JSON")

	return healthCmd
}

func renderSessionsHealth(cmd *cobra.Command, counts *ipc.SessionsHealthResponse, db *ipc.DatabaseHealthResponse) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	lines := make([]string, 0, 16)

	lines = append(lines, renderSectionHeader("Sessions", colorize)...)
	lines = append(lines, countsTable(counts.Total, counts.Active, counts.Locked, counts.Abandoned))

	lines = append(append(lines, ""), renderSectionHeader("Database", colorize)...)
	lines = append(lines, renderStatusLine("Path", statusInfo, db.DBPath, colorize))
	lines = append(lines, renderBoolCheck("Exists", db.DatabaseExists, colorize))
	lines = append(lines, renderBoolCheck("Readable", db.DatabaseReadable, colorize))
	lines = append(lines, renderBoolCheck("Schema", db.TableExists, colorize))
	lines = append(lines, renderBoolCheck("Integrity", db.IntegrityCheck, colorize))
	if db.Error != "" {
		lines = append(lines, renderStatusLine("Error", statusError, db.Error, colorize))
	}

	fmt.Fprintln(out, strings.Join(lines, "\n"))
}

func renderBoolCheck(label string, ok bool, colorize bool) string {
	kind := statusError
	if ok {
		kind = statusOK
	}
	return renderStatusLine(label, kind, yesNo(ok), colorize)
}

func renderSessionsTable(sessions []ipc.Session) string {
	rows := make([][]string, 0, len(sessions))
	for _, session := range sessions {
		serial := session.Serial
		if serial == "" {
			serial = "-"
		}
		confidence := "-"
		if session.Confidence > 0 {
			confidence = formatConfidence(session.Confidence)
		}
		rows = append(rows, []string{
			session.ID,
			session.Status,
			serial,
			confidence,
			strconv.Itoa(session.Frames),
			formatSessionTime(session.StartedAt),
		})
	}
	return renderTable(
		[]tableColumn{
			{header: "ID"},
			{header: "Status"},
			{header: "Serial"},
			{header: "Confidence", right: true},
			{header: "Frames", right: true},
			{header: "Started"},
		},
		rows,
	)
}

func formatSessionTime(value string) string {
	if value == "" {
		return "-"
	}
	if parsed, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return parsed.Local().Format("2006-01-02 15:04:05")
	}
	return value
}
