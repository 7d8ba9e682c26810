package model

import "time"

// Dimension names one multi-valued restriction of an AlertFilter.
type Dimension string

const (
	DimensionDepartments Dimension = "departments"
	DimensionCompanies   Dimension = "companies"
	DimensionWorkModels  Dimension = "work_models"
	DimensionSeniorities Dimension = "seniorities"
)

// Dimensions lists all restriction dimensions in storage order.
var Dimensions = []Dimension{
	DimensionDepartments,
	DimensionCompanies,
	DimensionWorkModels,
	DimensionSeniorities,
}

// ParseDimension accepts the plural storage name or its singular form.
func ParseDimension(s string) (Dimension, bool) {
	switch s {
	case "departments", "department":
		return DimensionDepartments, true
	case "companies", "company":
		return DimensionCompanies, true
	case "work_models", "work_model":
		return DimensionWorkModels, true
	case "seniorities", "seniority":
		return DimensionSeniorities, true
	}
	return "", false
}

// AlertFilter is a subscriber's standing criteria. An empty restriction set
// matches everything on that dimension.
type AlertFilter struct {
	UserID      int64
	IsActive    bool
	IsWinnipeg  bool
	SalaryMin   *int
	SalaryMax   *int
	Departments []string
	Companies   []string
	WorkModels  []string
	Seniorities []string
	CreatedAt   time.Time
}

// DefaultAlertFilter is created on a subscriber's first interaction.
func DefaultAlertFilter(userID int64) AlertFilter {
	return AlertFilter{
		UserID:     userID,
		IsActive:   true,
		IsWinnipeg: true,
	}
}

// Values returns the restriction set for d.
func (f *AlertFilter) Values(d Dimension) []string {
	switch d {
	case DimensionDepartments:
		return f.Departments
	case DimensionCompanies:
		return f.Companies
	case DimensionWorkModels:
		return f.WorkModels
	case DimensionSeniorities:
		return f.Seniorities
	}
	return nil
}

// SetValues replaces the restriction set for d.
func (f *AlertFilter) SetValues(d Dimension, values []string) {
	switch d {
	case DimensionDepartments:
		f.Departments = values
	case DimensionCompanies:
		f.Companies = values
	case DimensionWorkModels:
		f.WorkModels = values
	case DimensionSeniorities:
		f.Seniorities = values
	}
}
