package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/amishk599/applynow/internal/alerts"
	"github.com/amishk599/applynow/internal/model"
)

var alertsUser int64

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Manage subscriber alert filters",
	Long:  "Create, inspect and edit the alert filter of one subscriber (identified by --user).",
}

var alertsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the subscriber's filter",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAlerts(func(ctx context.Context, svc *alerts.Service) (*model.AlertFilter, error) {
			f, _, err := svc.Ensure(ctx, alertsUser)
			return f, err
		})
	},
}

var alertsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the default filter if the subscriber has none",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAlerts(func(ctx context.Context, svc *alerts.Service) (*model.AlertFilter, error) {
			f, created, err := svc.Ensure(ctx, alertsUser)
			if err == nil && !created {
				fmt.Printf("Subscriber %d already has a filter.\n\n", alertsUser)
			}
			return f, err
		})
	},
}

var alertsToggleCmd = &cobra.Command{
	Use:   "toggle active|winnipeg|DIMENSION [VALUE]",
	Short: "Flip a flag or add/remove one restriction value",
	Long: "toggle active           enable or disable alerts\n" +
		"toggle winnipeg         switch between Winnipeg only and all locations\n" +
		"toggle DIMENSION VALUE  add VALUE to (or remove it from) departments, companies, work_models or seniorities",
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAlerts(func(ctx context.Context, svc *alerts.Service) (*model.AlertFilter, error) {
			switch args[0] {
			case "active":
				return svc.ToggleActive(ctx, alertsUser)
			case "winnipeg":
				return svc.ToggleWinnipeg(ctx, alertsUser)
			}
			d, ok := model.ParseDimension(args[0])
			if !ok {
				return nil, fmt.Errorf("unknown toggle %q", args[0])
			}
			if len(args) != 2 {
				return nil, fmt.Errorf("toggle %s needs a value", d)
			}
			return svc.ToggleValue(ctx, alertsUser, d, args[1])
		})
	},
}

var alertsSetCmd = &cobra.Command{
	Use:   "set salary MIN|- MAX|-",
	Short: "Set the salary bounds (\"-\" clears a bound)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if args[0] != "salary" {
			return fmt.Errorf("unknown setting %q", args[0])
		}
		minSalary, err := parseBound(args[1])
		if err != nil {
			return err
		}
		maxSalary, err := parseBound(args[2])
		if err != nil {
			return err
		}
		return withAlerts(func(ctx context.Context, svc *alerts.Service) (*model.AlertFilter, error) {
			return svc.SetSalary(ctx, alertsUser, minSalary, maxSalary)
		})
	},
}

var alertsOptionsCmd = &cobra.Command{
	Use:   "options DIMENSION",
	Short: "List the selectable values of a dimension",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, ok := model.ParseDimension(args[0])
		if !ok {
			return fmt.Errorf("unknown dimension %q", args[0])
		}
		return withAlerts(func(ctx context.Context, svc *alerts.Service) (*model.AlertFilter, error) {
			f, _, err := svc.Ensure(ctx, alertsUser)
			if err != nil {
				return nil, err
			}
			options, err := svc.Options(ctx, d)
			if err != nil {
				return nil, err
			}
			for _, o := range options {
				fmt.Println(alerts.Toggle(o, slices.Contains(f.Values(d), o)))
			}
			return nil, nil
		})
	},
}

func init() {
	alertsCmd.PersistentFlags().Int64Var(&alertsUser, "user", 0, "subscriber id (chat id)")
	_ = alertsCmd.MarkPersistentFlagRequired("user")
	alertsCmd.AddCommand(alertsShowCmd, alertsCreateCmd, alertsToggleCmd, alertsSetCmd, alertsOptionsCmd)
	rootCmd.AddCommand(alertsCmd)
}

// withAlerts opens the store, runs fn and prints the resulting filter.
func withAlerts(fn func(ctx context.Context, svc *alerts.Service) (*model.AlertFilter, error)) error {
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

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if debug {
		logger = setupLogger(true)
	}

	f, err := fn(ctx, alerts.NewService(st, logger))
	if err != nil {
		return err
	}
	if f != nil {
		fmt.Println(alerts.Describe(f))
	}
	return nil
}

func parseBound(s string) (*int, error) {
	if s == "-" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("salary bound %q: %w", s, err)
	}
	return &n, nil
}
