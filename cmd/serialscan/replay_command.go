package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"serialscan/internal/ocr"
	"serialscan/internal/pipeline"
)

type replaySummary struct {
	SessionID  string  `json:"session_id"`
	Frames     int     `json:"frames"`
	Valid      int     `json:"valid"`
	Rejected   int     `json:"rejected"`
	Locked     bool    `json:"locked"`
	Serial     string  `json:"serial"`
	Confidence float64 `json:"confidence"`
	State      string  `json:"state"`
	Guidance   string  `json:"guidance"`
}

func newReplayCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var verbose bool

	replayCmd := &cobra.Command{
		Use:   "replay <frames.jsonl>",
		Short: "Run a recorded frame capture through the pipeline offline",
		Long: "Replay processes a JSONL frame capture in-process, without the daemon. " +
			"Frame timestamps come from each frame's offset, so a replay is " +
			"deterministic regardless of wall-clock speed.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			if cfg == nil {
				return fmt.Errorf("configuration unavailable")
			}

			frames, err := ocr.ReadFramesFile(args[0])
			if err != nil {
				return err
			}
			if len(frames) == 0 {
				return fmt.Errorf("capture %s contains no frames", args[0])
			}

			pipe, err := pipeline.New(cfg)
			if err != nil {
				return err
			}

			summary := runReplay(cmd, pipe, frames, verbose && !jsonOutput)
			if jsonOutput {
				return writeJSON(cmd, summary)
			}
			renderReplaySummary(cmd, summary)
			return nil
		},
	}

	replayCmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the replay summary as JSON")
	replayCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print per-frame progress")

	return replayCmd
}

func runReplay(cmd *cobra.Command, pipe *pipeline.Orchestrator, frames []ocr.Frame, verbose bool) replaySummary {
	out := cmd.OutOrStdout()
	base := time.Now()

	summary := replaySummary{SessionID: pipe.SessionID()}
	for _, frame := range frames {
		at := base.Add(time.Duration(frame.OffsetSeconds * float64(time.Second)))
		result := pipe.ProcessFrame(frame, at)

		summary.Frames++
		summary.Valid += result.Valid
		summary.Rejected += result.Rejected
		summary.State = string(result.Stability.State)
		summary.Guidance = result.Stability.Guidance

		if verbose {
			best := "-"
			if result.Best != nil {
				best = result.Best.Cleaned
			}
			fmt.Fprintf(out, "frame %6.2fs best=%-14s state=%-11s guidance=%q\n",
				frame.OffsetSeconds, best, result.Stability.State, result.Stability.Guidance)
		}

		if result.Stability.ShouldLock {
			summary.Locked = true
			summary.Serial = result.Stability.StableText
			summary.Confidence = result.Stability.Confidence
			break
		}
	}
	return summary
}

func renderReplaySummary(cmd *cobra.Command, summary replaySummary) {
	out := cmd.OutOrStdout()

	outcome := "no lock"
	if summary.Locked {
		outcome = "locked"
	}
	serial := summary.Serial
	if serial == "" {
		serial = "-"
	}
	confidence := "-"
	if summary.Locked {
		confidence = formatConfidence(summary.Confidence)
	}

	fmt.Fprintln(out, renderTable(
		[]tableColumn{
			{header: "Outcome"},
			{header: "Serial"},
			{header: "Confidence", right: true},
			{header: "Frames", right: true},
			{header: "Valid", right: true},
			{header: "Rejected", right: true},
		},
		[][]string{{
			outcome,
			serial,
			confidence,
			strconv.Itoa(summary.Frames),
			strconv.Itoa(summary.Valid),
			strconv.Itoa(summary.Rejected),
		}},
	))

	if !summary.Locked && summary.Guidance != "" {
		fmt.Fprintf(out, "Last guidance: %s\n", summary.Guidance)
	}
}
