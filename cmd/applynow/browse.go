package main

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/amishk599/applynow/internal/browse"
	"github.com/amishk599/applynow/internal/model"
)

var browseUser int64

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse stored jobs interactively (TUI)",
	Long:  "Shows the company picker, then a split-pane view of stored jobs next to the jobs a subscriber's filter would deliver (--user; the default filter otherwise).",
	RunE:  runBrowse,
}

func init() {
	browseCmd.Flags().Int64Var(&browseUser, "user", 0, "subscriber whose filter fills the right pane")
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
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

	f := model.DefaultAlertFilter(browseUser)
	label := "default filter"
	if browseUser != 0 {
		stored, err := st.AlertFilter(ctx, browseUser)
		switch {
		case err == nil:
			f = *stored
			label = fmt.Sprintf("user %d", browseUser)
		case errors.Is(err, model.ErrNotFound):
			fmt.Printf("Subscriber %d has no filter; showing the default one.\n", browseUser)
		default:
			return err
		}
	}

	for {
		jobs, err := browse.RunLoader("Loading jobs", func(ctx context.Context) ([]model.Job, error) {
			return st.ListJobs(ctx, false)
		})
		if err != nil {
			return fmt.Errorf("loading jobs: %w", err)
		}

		company, ok, err := browse.RunCompanyPicker(companyCounts(jobs))
		if err != nil {
			return fmt.Errorf("picker: %w", err)
		}
		if !ok {
			return nil
		}

		load := func(ctx context.Context, includeArchived bool) ([]model.Job, error) {
			all, err := st.ListJobs(ctx, includeArchived)
			if err != nil {
				return nil, err
			}
			return byCompany(all, company), nil
		}

		wantQuit, err := browse.Run(byCompany(jobs, company), f, label, load)
		if err != nil {
			return fmt.Errorf("browser: %w", err)
		}
		if wantQuit {
			return nil
		}
		// else: loop → back to picker
	}
}

func companyCounts(jobs []model.Job) []browse.CompanyCount {
	counts := make(map[string]int)
	for _, j := range jobs {
		counts[j.Company]++
	}
	out := make([]browse.CompanyCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, browse.CompanyCount{Name: name, Jobs: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// byCompany returns the jobs of company, or all jobs when company is "".
func byCompany(jobs []model.Job, company string) []model.Job {
	if company == "" {
		return jobs
	}
	var out []model.Job
	for _, j := range jobs {
		if j.Company == company {
			out = append(out, j)
		}
	}
	return out
}
