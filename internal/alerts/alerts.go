// Package alerts manages subscriber alert filters: the default filter a
// subscriber gets on first contact and the toggles that edit it.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/amishk599/applynow/internal/model"
)

// ErrInvalidValue is returned when a restriction value is outside its dimension's domain.
var ErrInvalidValue = errors.New("invalid filter value")

// FilterStore is the storage the service needs.
type FilterStore interface {
	AlertFilter(ctx context.Context, userID int64) (*model.AlertFilter, error)
	SaveAlertFilter(ctx context.Context, f *model.AlertFilter) error
	ListJobs(ctx context.Context, includeArchived bool) ([]model.Job, error)
}

// Service edits alert filters on behalf of subscribers.
type Service struct {
	store  FilterStore
	logger *slog.Logger
}

// NewService creates a Service backed by store.
func NewService(store FilterStore, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Ensure returns the subscriber's filter, creating the default one on first
// contact. created reports whether a new filter was stored.
func (s *Service) Ensure(ctx context.Context, userID int64) (f *model.AlertFilter, created bool, err error) {
	f, err = s.store.AlertFilter(ctx, userID)
	if err == nil {
		return f, false, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, false, fmt.Errorf("loading filter for %d: %w", userID, err)
	}

	def := model.DefaultAlertFilter(userID)
	if err := s.store.SaveAlertFilter(ctx, &def); err != nil {
		return nil, false, fmt.Errorf("creating filter for %d: %w", userID, err)
	}
	s.logger.Info("created default alert filter", "user_id", userID)
	return &def, true, nil
}

// ToggleActive flips whether the subscriber receives alerts at all.
func (s *Service) ToggleActive(ctx context.Context, userID int64) (*model.AlertFilter, error) {
	return s.update(ctx, userID, func(f *model.AlertFilter) error {
		f.IsActive = !f.IsActive
		return nil
	})
}

// ToggleWinnipeg flips the Winnipeg-only restriction.
func (s *Service) ToggleWinnipeg(ctx context.Context, userID int64) (*model.AlertFilter, error) {
	return s.update(ctx, userID, func(f *model.AlertFilter) error {
		f.IsWinnipeg = !f.IsWinnipeg
		return nil
	})
}

// ToggleValue adds value to the dimension's allow-list, or removes it when
// already present. Removing the last value widens the dimension to everything.
func (s *Service) ToggleValue(ctx context.Context, userID int64, d model.Dimension, value string) (*model.AlertFilter, error) {
	v, err := normalizeValue(d, value)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, userID, func(f *model.AlertFilter) error {
		values := f.Values(d)
		if i := slices.Index(values, v); i >= 0 {
			f.SetValues(d, slices.Delete(slices.Clone(values), i, i+1))
		} else {
			f.SetValues(d, append(slices.Clone(values), v))
		}
		return nil
	})
}

// SetSalary stores the salary bounds. Nil clears a bound. The bounds are
// shown to the subscriber but never used for matching.
func (s *Service) SetSalary(ctx context.Context, userID int64, minSalary, maxSalary *int) (*model.AlertFilter, error) {
	if (minSalary != nil && *minSalary < 0) || (maxSalary != nil && *maxSalary < 0) {
		return nil, fmt.Errorf("%w: salary must not be negative", ErrInvalidValue)
	}
	if minSalary != nil && maxSalary != nil && *minSalary > *maxSalary {
		return nil, fmt.Errorf("%w: salary min %d exceeds max %d", ErrInvalidValue, *minSalary, *maxSalary)
	}
	return s.update(ctx, userID, func(f *model.AlertFilter) error {
		f.SalaryMin = minSalary
		f.SalaryMax = maxSalary
		return nil
	})
}

// Options lists the selectable values for d. Companies come from the jobs
// currently listed; the other dimensions are fixed enums.
func (s *Service) Options(ctx context.Context, d model.Dimension) ([]string, error) {
	switch d {
	case model.DimensionDepartments:
		out := make([]string, 0, len(model.Departments))
		for _, dep := range model.Departments {
			out = append(out, string(dep))
		}
		return out, nil
	case model.DimensionWorkModels:
		return []string{string(model.WorkModelRemote), string(model.WorkModelOnSite), string(model.WorkModelHybrid)}, nil
	case model.DimensionSeniorities:
		return []string{string(model.SeniorityEntry), string(model.SeniorityMid), string(model.SenioritySenior), string(model.SeniorityLead)}, nil
	case model.DimensionCompanies:
		jobs, err := s.store.ListJobs(ctx, false)
		if err != nil {
			return nil, fmt.Errorf("listing companies: %w", err)
		}
		seen := make(map[string]bool)
		var out []string
		for _, j := range jobs {
			if !seen[j.Company] {
				seen[j.Company] = true
				out = append(out, j.Company)
			}
		}
		sort.Strings(out)
		return out, nil
	}
	return nil, fmt.Errorf("unknown dimension %q", d)
}

func (s *Service) update(ctx context.Context, userID int64, fn func(f *model.AlertFilter) error) (*model.AlertFilter, error) {
	f, _, err := s.Ensure(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := fn(f); err != nil {
		return nil, err
	}
	if err := s.store.SaveAlertFilter(ctx, f); err != nil {
		return nil, fmt.Errorf("saving filter for %d: %w", userID, err)
	}
	return f, nil
}

// normalizeValue maps free input onto the stored form for d.
func normalizeValue(d model.Dimension, value string) (string, error) {
	value = strings.TrimSpace(value)
	switch d {
	case model.DimensionDepartments:
		dep := model.Department(strings.ToLower(value))
		if !slices.Contains(model.Departments, dep) {
			return "", fmt.Errorf("%w: department %q", ErrInvalidValue, value)
		}
		return string(dep), nil
	case model.DimensionWorkModels:
		if wm := model.ParseWorkModel(value); wm != "" {
			return string(wm), nil
		}
		return "", fmt.Errorf("%w: work model %q", ErrInvalidValue, value)
	case model.DimensionSeniorities:
		if sn := model.ParseSeniority(value); sn != "" {
			return string(sn), nil
		}
		return "", fmt.Errorf("%w: seniority %q", ErrInvalidValue, value)
	case model.DimensionCompanies:
		if value == "" {
			return "", fmt.Errorf("%w: empty company", ErrInvalidValue)
		}
		return value, nil
	}
	return "", fmt.Errorf("%w: unknown dimension %q", ErrInvalidValue, d)
}
