// Package filter decides whether a stored job satisfies a subscriber's alert filter.
package filter

import "github.com/amishk599/applynow/internal/model"

// Matches returns true if job satisfies every restriction of f. Restrictions
// are combined with AND; an empty restriction set passes every job.
//
// Salary bounds on the filter are not evaluated.
func Matches(job *model.Job, f *model.AlertFilter) bool {
	if f.IsWinnipeg && !job.IsWinnipeg {
		return false
	}

	for _, d := range model.Dimensions {
		if !allowed(f.Values(d), attribute(job, d)) {
			return false
		}
	}

	return true
}

// attribute returns the job value compared against dimension d.
func attribute(job *model.Job, d model.Dimension) string {
	switch d {
	case model.DimensionDepartments:
		return string(job.Department)
	case model.DimensionCompanies:
		return job.Company
	case model.DimensionWorkModels:
		return string(job.WorkModel)
	case model.DimensionSeniorities:
		return string(job.Seniority)
	}
	return ""
}

func allowed(set []string, value string) bool {
	if len(set) == 0 {
		return true
	}
	for _, v := range set {
		if v == value {
			return true
		}
	}
	return false
}
