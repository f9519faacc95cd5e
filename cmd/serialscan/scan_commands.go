package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"serialscan/internal/ipc"
	"serialscan/internal/ocr"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Control the in-progress scan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	scanCmd.AddCommand(newScanStartCommand(ctx))
	scanCmd.AddCommand(newScanStopCommand(ctx))
	scanCmd.AddCommand(newScanUnlockCommand(ctx))
	scanCmd.AddCommand(newScanFeedCommand(ctx))

	return scanCmd
}

func newScanStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Begin a new scan session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ScanStart()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Scan session %s started\n", resp.SessionID)
				return nil
			})
		},
	}
}

func newScanStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Abandon the in-progress scan session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ScanStop()
				if err != nil {
					return err
				}
				if !resp.Stopped {
					fmt.Fprintln(cmd.OutOrStdout(), "No active scan session")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Scan session abandoned")
				return nil
			})
		},
	}
}

func newScanUnlockCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock",
		Short: "Discard the current consensus and resume scanning",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.ForceUnlock(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Consensus discarded; scanning resumed")
				return nil
			})
		},
	}
}

func newScanFeedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "feed <frames.jsonl>",
		Short: "Stream a recorded frame capture into the running scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			frames, err := ocr.ReadFramesFile(args[0])
			if err != nil {
				return err
			}
			if len(frames) == 0 {
				return fmt.Errorf("capture %s contains no frames", args[0])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				out := cmd.OutOrStdout()
				for _, frame := range frames {
					resp, err := client.TrackFrame(frame)
					if err != nil {
						return err
					}
					if resp.Busy {
						fmt.Fprintf(out, "frame %6.2fs dropped: pipeline busy\n", frame.OffsetSeconds)
						continue
					}
					fmt.Fprintf(out, "frame %6.2fs state=%s guidance=%q\n", frame.OffsetSeconds, resp.State, resp.Guidance)
					if resp.ShouldLock {
						fmt.Fprintf(out, "Locked serial %s (confidence %s) after %d frames\n",
							resp.StableText, formatConfidence(resp.Confidence), resp.FrameIndex+1)
						return nil
					}
				}
				fmt.Fprintln(out, "Capture exhausted without a lock")
				return nil
			})
		},
	}
}
