package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/applynow/internal/dispatcher"
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Run one dispatch tick and exit",
	Long:  "Delivers every pending new-job event to matching subscribers once, then marks the events sent.",
	RunE:  runDispatch,
}

func init() {
	rootCmd.AddCommand(dispatchCmd)
}

func runDispatch(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg.Database, "")
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	n, closeNotifier, err := setupNotifier(cfg, &http.Client{Timeout: cfg.Crawl.HTTPTimeout}, logger)
	if err != nil {
		return fmt.Errorf("setting up notifier: %w", err)
	}
	defer closeNotifier()

	l, closeLease, err := setupLease(ctx, cfg.Dispatch.Lease, logger)
	if err != nil {
		return fmt.Errorf("setting up lease: %w", err)
	}
	defer closeLease()

	res, err := dispatcher.New(st, n, l, cfg.Dispatch.Interval, logger).Tick(ctx)
	if res.Contended {
		fmt.Println("Another dispatcher holds the lease; nothing done.")
		return nil
	}
	fmt.Printf("Pending %d, handled %d, sent %d, failed %d\n", res.Pending, res.Handled, res.Sent, res.Failed)
	return err
}
