package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// jobColumns is the column order shared by every job scan.
const jobColumns = `id, link, company, title, location, job_type, description,
	salary_min, salary_max, work_model, industry, seniority, technologies,
	is_winnipeg, department, min_experience, archived, last_seen, date_added`

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func intFromNull(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func encodeTechnologies(tech []string) (string, error) {
	if tech == nil {
		tech = []string{}
	}
	b, err := json.Marshal(tech)
	if err != nil {
		return "", fmt.Errorf("encoding technologies: %w", err)
	}
	return string(b), nil
}

func decodeTechnologies(raw string) ([]string, error) {
	tech := []string{}
	if raw == "" {
		return tech, nil
	}
	if err := json.Unmarshal([]byte(raw), &tech); err != nil {
		return nil, fmt.Errorf("decoding technologies: %w", err)
	}
	return tech, nil
}
