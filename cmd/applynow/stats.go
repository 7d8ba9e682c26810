package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print store counts",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg.Database, "")
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	s, err := st.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("%-18s %d\n", "Jobs", s.Jobs)
	fmt.Printf("%-18s %d\n", "Active jobs", s.ActiveJobs)
	fmt.Printf("%-18s %d\n", "Archived jobs", s.Jobs-s.ActiveJobs)
	fmt.Printf("%-18s %d\n", "Pending events", s.PendingEvents)
	fmt.Printf("%-18s %d\n", "Active alerts", s.ActiveAlerts)
	return nil
}
