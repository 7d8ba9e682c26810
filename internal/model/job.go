package model

import (
	"strings"
	"time"
)

// WorkModel is where the work happens. The zero value means unknown.
type WorkModel string

const (
	WorkModelRemote WorkModel = "remote"
	WorkModelOnSite WorkModel = "on-site"
	WorkModelHybrid WorkModel = "hybrid"
)

// Seniority is the experience level of a role. The zero value means unknown.
type Seniority string

const (
	SeniorityEntry  Seniority = "entry"
	SeniorityMid    Seniority = "mid"
	SenioritySenior Seniority = "senior"
	SeniorityLead   Seniority = "lead"
)

// Department groups roles by function. Unknown or invalid values become DepartmentOther.
type Department string

const (
	DepartmentSoftwareEngineering Department = "software_engineering"
	DepartmentManagement          Department = "management"
	DepartmentDesign              Department = "design"
	DepartmentMarketing           Department = "marketing"
	DepartmentSales               Department = "sales"
	DepartmentHR                  Department = "hr"
	DepartmentFinance             Department = "finance"
	DepartmentSupport             Department = "support"
	DepartmentOperations          Department = "operations"
	DepartmentOther               Department = "other"
)

// Departments lists every valid department in display order.
var Departments = []Department{
	DepartmentSoftwareEngineering,
	DepartmentManagement,
	DepartmentDesign,
	DepartmentMarketing,
	DepartmentSales,
	DepartmentHR,
	DepartmentFinance,
	DepartmentSupport,
	DepartmentOperations,
	DepartmentOther,
}

// ParseWorkModel normalizes s, returning "" for anything outside the enum.
func ParseWorkModel(s string) WorkModel {
	switch wm := WorkModel(strings.ToLower(strings.TrimSpace(s))); wm {
	case WorkModelRemote, WorkModelOnSite, WorkModelHybrid:
		return wm
	case "onsite", "on site":
		return WorkModelOnSite
	}
	return ""
}

// ParseSeniority normalizes s, returning "" for anything outside the enum.
func ParseSeniority(s string) Seniority {
	switch sn := Seniority(strings.ToLower(strings.TrimSpace(s))); sn {
	case SeniorityEntry, SeniorityMid, SenioritySenior, SeniorityLead:
		return sn
	}
	return ""
}

// ParseDepartment normalizes s, falling back to DepartmentOther.
func ParseDepartment(s string) Department {
	d := Department(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Departments {
		if d == known {
			return d
		}
	}
	return DepartmentOther
}

// Enrichment holds the attributes the text-enrichment service extracts from
// a posting. Nil pointers and empty strings mean "not stated".
type Enrichment struct {
	SalaryMin     *int
	SalaryMax     *int
	WorkModel     WorkModel
	Industry      string
	Seniority     Seniority
	Technologies  []string
	IsWinnipeg    bool
	Department    Department
	MinExperience *int
}

// DefaultEnrichment is what a posting carries when enrichment failed or was disabled.
func DefaultEnrichment() Enrichment {
	return Enrichment{
		Technologies: []string{},
		Department:   DepartmentOther,
	}
}

// Posting is one listing as produced by a source adapter, optionally enriched.
type Posting struct {
	Link        string // canonical URL, the identity of the posting
	Company     string
	Title       string
	Location    string
	JobType     string
	Description string
	IsWinnipeg  bool // adapter-side location heuristic

	// Enrichment is nil when enrichment was skipped for this posting. The
	// reconciler then keeps whatever enrichment is already stored.
	Enrichment *Enrichment
}

// Job is the stored, deduplicated record for one posting link.
type Job struct {
	ID          string
	Link        string
	Company     string
	Title       string
	Location    string
	JobType     string
	Description string
	Enrichment
	Archived  bool
	LastSeen  time.Time
	DateAdded time.Time
}

// Refresh copies the mutable attributes of p onto j. Without new enrichment
// the stored Winnipeg flag is kept only while location and description are
// unchanged; otherwise it is recomputed from the adapter's heuristic.
func (j *Job) Refresh(p Posting) {
	textChanged := j.Location != p.Location || j.Description != p.Description
	j.Title = p.Title
	j.Location = p.Location
	j.JobType = p.JobType
	j.Description = p.Description
	switch {
	case p.Enrichment != nil:
		j.Enrichment = *p.Enrichment
		j.IsWinnipeg = p.Enrichment.IsWinnipeg || p.IsWinnipeg
	case textChanged:
		j.IsWinnipeg = p.IsWinnipeg
	}
	if j.Department == "" {
		j.Department = DepartmentOther
	}
	if j.Technologies == nil {
		j.Technologies = []string{}
	}
}
