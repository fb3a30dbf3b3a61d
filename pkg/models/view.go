package models

import "time"

// View is a catalog view with its stored definition text
type View struct {
	Schema     string `json:"schema"`
	Name       string `json:"name"`
	Definition string `json:"-"`
}

// QualifiedName returns schema.name
func (v View) QualifiedName() string {
	return v.Schema + "." + v.Name
}

// ViewStatus is the outcome of processing one view
type ViewStatus string

const (
	StatusWritten ViewStatus = "written"
	StatusSkipped ViewStatus = "skipped"
	StatusFailed  ViewStatus = "failed"
)

// ViewResult records what happened to a single view
type ViewResult struct {
	View       string        `json:"view"`
	Status     ViewStatus    `json:"status"`
	Clause     string        `json:"clause,omitempty"`
	Columns    []string      `json:"columns,omitempty"`
	CreatePath string        `json:"create_path,omitempty"`
	DropPath   string        `json:"drop_path,omitempty"`
	Err        error         `json:"-"`
	Duration   time.Duration `json:"duration"`
}

// RunReport aggregates the results of a discovery run
type RunReport struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	ViewsSeen int           `json:"views_seen"`
	Results   []ViewResult  `json:"results"`
}

// Count returns the number of results with status
func (r *RunReport) Count(status ViewStatus) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// Failed reports whether any view failed
func (r *RunReport) Failed() bool {
	return r.Count(StatusFailed) > 0
}
