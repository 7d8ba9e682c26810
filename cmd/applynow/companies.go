package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "List all configured companies",
	Long:  "Reads the config and prints a table of all configured companies.",
	RunE:  runCompanies,
}

func init() {
	rootCmd.AddCommand(companiesCmd)
}

func runCompanies(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fmt.Printf("%-25s %-12s %-25s %-8s %s\n", "Company", "ATS", "Board", "Gap", "Status")
	fmt.Println(strings.Repeat("─", 82))

	enabled, disabled := 0, 0
	for _, c := range cfg.Companies {
		status := "enabled"
		if !c.Enabled {
			status = "disabled"
			disabled++
		} else {
			enabled++
		}
		fmt.Printf("%-25s %-12s %-25s %-8s %s\n", c.Name, c.ATS, c.BoardToken, cfg.RateLimit.MinDelayFor(c.ATS), status)
	}

	fmt.Printf("\nTotal: %d companies (%d enabled, %d disabled)\n", len(cfg.Companies), enabled, disabled)
	return nil
}
