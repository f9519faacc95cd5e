package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"serialscan/internal/ipc"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start scanner processing in the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Start()
				if err != nil {
					return err
				}
				if resp.Message != "" {
					fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
					if !resp.Started {
						return fmt.Errorf("daemon did not start")
					}
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon started")
				return nil
			})
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop scanner processing in the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Stop(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon stopped")
				return nil
			})
		},
	}

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, camera, and session status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}
				if statusJSON {
					return writeJSON(cmd, resp)
				}
				renderStatus(cmd, resp)
				return nil
			})
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Emit status as JSON")

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

func renderStatus(cmd *cobra.Command, resp *ipc.StatusResponse) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	lines := make([]string, 0, 32)

	lines = append(lines, renderSectionHeader("Daemon", colorize)...)
	runningKind := statusError
	runningMsg := "not running"
	if resp.Running {
		runningKind = statusOK
		runningMsg = fmt.Sprintf("pid %d", resp.PID)
	}
	lines = append(lines,
		renderStatusLine("Running", runningKind, runningMsg, colorize),
		renderStatusLine("Lock file", statusInfo, resp.LockPath, colorize),
		renderStatusLine("Sessions DB", statusInfo, resp.SessionsDBPath, colorize),
	)

	lines = append(append(lines, ""), renderSectionHeader("Camera", colorize)...)
	if resp.CameraDevice == "" {
		lines = append(lines, renderStatusLine("Device", statusWarn, "not configured", colorize))
	} else {
		cameraKind := statusWarn
		if resp.CameraPresent {
			cameraKind = statusOK
		}
		lines = append(lines,
			renderStatusLine("Device", statusInfo, resp.CameraDevice, colorize),
			renderStatusLine("Present", cameraKind, yesNo(resp.CameraPresent), colorize),
		)
	}

	if len(resp.Checks) > 0 {
		lines = append(append(lines, ""), renderSectionHeader("Preflight", colorize)...)
		for _, check := range resp.Checks {
			kind := statusOK
			if !check.Passed {
				kind = statusError
			}
			lines = append(lines, renderStatusLine(check.Name, kind, check.Detail, colorize))
		}
	}

	lines = append(append(lines, ""), renderSectionHeader("Scan", colorize)...)
	if resp.Scan.Active {
		scanKind := statusInfo
		scanMsg := "in progress"
		if resp.Scan.Locked {
			scanKind = statusOK
			scanMsg = fmt.Sprintf("locked %s", resp.Scan.Serial)
		}
		lines = append(lines,
			renderStatusLine("Session", statusInfo, resp.Scan.SessionID, colorize),
			renderStatusLine("State", scanKind, scanMsg, colorize),
			renderStatusLine("Frames", statusInfo, strconv.Itoa(resp.Scan.Frames), colorize),
		)
		if resp.Scan.Confidence > 0 {
			lines = append(lines, renderStatusLine("Confidence", statusInfo, formatConfidence(resp.Scan.Confidence), colorize))
		}
	} else {
		lines = append(lines, renderStatusLine("Session", statusInfo, "none active", colorize))
	}

	lines = append(append(lines, ""), renderSectionHeader("Sessions", colorize)...)
	lines = append(lines, countsTable(
		resp.Sessions.Total,
		resp.Sessions.Active,
		resp.Sessions.Locked,
		resp.Sessions.Abandoned,
	))

	fmt.Fprintln(out, strings.Join(lines, "\n"))
}

func formatConfidence(value float64) string {
	return fmt.Sprintf("%.0f%%", value*100)
}
