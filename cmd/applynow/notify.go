package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/amishk599/applynow/internal/notifier"
)

var notifyUser int64

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Notification subcommands",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test notification",
	Long:  "Sends a sample job alert to --user using the configured notifier.",
	RunE:  runNotifyTest,
}

func init() {
	notifyTestCmd.Flags().Int64Var(&notifyUser, "user", 0, "subscriber id (chat id) to send to")
	_ = notifyTestCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyTestCmd)
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	n, closeNotifier, err := setupNotifier(cfg, &http.Client{Timeout: cfg.Crawl.HTTPTimeout}, logger)
	if err != nil {
		return fmt.Errorf("setting up notifier: %w", err)
	}
	defer closeNotifier()

	if err := notifier.SendTestMessage(context.Background(), n, notifyUser); err != nil {
		return fmt.Errorf("test notification failed: %w", err)
	}
	logger.Info("test notification sent successfully", "user_id", notifyUser)
	return nil
}
