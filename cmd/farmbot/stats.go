package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"hoardfarm.ai/internal/config"
	"hoardfarm.ai/internal/persistence/runlog"
	"hoardfarm.ai/internal/persistence/statsdb"
)

// AchievementGoal is the reward count the progress estimate counts towards.
const AchievementGoal = 20000

func newStatsCmd() *cobra.Command {
	var journal int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print overall counters and the run breakdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := config.Open(configPath)
			if err != nil {
				return err
			}
			cfg := store.Snapshot()
			out := cmd.OutOrStdout()

			var sum *statsdb.Summary
			dbPath := filepath.Join(cfg.DataDir, statsFile)
			if _, err := os.Stat(dbPath); err == nil {
				idx, err := statsdb.Open(dbPath, nil)
				if err != nil {
					return err
				}
				s, err := idx.Summary(cmd.Context())
				_ = idx.Close()
				if err != nil {
					return fmt.Errorf("summarize %s: %w", dbPath, err)
				}
				sum = &s
			}
			writeStats(out, cfg.Counters, sum)

			if journal > 0 {
				entries, err := runlog.ReadAll(filepath.Join(cfg.DataDir, journalDir))
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: journal partly unreadable: %v\n", err)
				}
				writeJournal(out, entries, journal)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&journal, "journal", 0, "also print the last N journal entries")
	return cmd
}

type overall struct {
	FoundPct      float64
	PerReward     time.Duration
	Remaining     int
	TimeRemaining time.Duration
}

func computeOverall(c config.Counters) overall {
	var o overall
	if c.Runs > 0 {
		o.FoundPct = float64(c.Rewards) / float64(c.Runs) * 100
	}
	if c.Rewards > 0 {
		o.PerReward = time.Duration(c.Seconds) * time.Second / time.Duration(c.Rewards)
	}
	o.Remaining = AchievementGoal - c.AchievementProgress
	if o.Remaining < 0 {
		o.Remaining = 0
	}
	o.TimeRemaining = o.PerReward * time.Duration(o.Remaining)
	return o
}

func writeStats(w io.Writer, c config.Counters, sum *statsdb.Summary) {
	o := computeOverall(c)
	fmt.Fprintf(w, "runs:          %d\n", c.Runs)
	fmt.Fprintf(w, "rewards:       %d (%.2f%%)\n", c.Rewards, o.FoundPct)
	fmt.Fprintf(w, "time:          %s\n", time.Duration(c.Seconds)*time.Second)
	fmt.Fprintf(w, "per reward:    %s\n", o.PerReward.Round(time.Second))
	fmt.Fprintf(w, "achievement:   %d/%d, %d to go, about %s\n",
		c.AchievementProgress, AchievementGoal, o.Remaining, o.TimeRemaining.Round(time.Minute))

	if sum == nil {
		return
	}
	fmt.Fprintf(w, "\nindexed runs:  %d, %d collected, avg %s\n", sum.Runs, sum.Collected, sum.AvgCollected.Round(time.Second))
	reasons := make([]string, 0, len(sum.ByReason))
	for r := range sum.ByReason {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Fprintf(w, "  %-12s %d\n", r, sum.ByReason[r])
	}
}

func writeJournal(w io.Writer, entries []runlog.Entry, last int) {
	if len(entries) > last {
		entries = entries[len(entries)-last:]
	}
	fmt.Fprintln(w)
	for _, e := range entries {
		fmt.Fprintf(w, "%s  %-11s territory=%d %s\n",
			e.At.Format(time.RFC3339), e.Reason, e.Territory, (time.Duration(e.DurationMS) * time.Millisecond).Round(time.Second))
	}
}
