package models

import (
	"time"

	"github.com/google/uuid"
)

type CategoryResult struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Count int    `json:"count"`
	File  string `json:"file,omitempty"`
	Err   string `json:"error,omitempty"`
}

func (r CategoryResult) Failed() bool {
	return r.Err != ""
}

// RunSummary aggregates one pipeline run.
type RunSummary struct {
	RunID        uuid.UUID        `json:"run_id"`
	StartedAt    time.Time        `json:"started_at"`
	FinishedAt   time.Time        `json:"finished_at"`
	Categories   []CategoryResult `json:"categories"`
	Total        int              `json:"total"`
	CombinedFile string           `json:"combined_file,omitempty"`
}

func NewRunSummary(startedAt time.Time) *RunSummary {
	return &RunSummary{
		RunID:      uuid.New(),
		StartedAt:  startedAt,
		Categories: make([]CategoryResult, 0),
	}
}

func (s *RunSummary) Add(r CategoryResult) {
	s.Categories = append(s.Categories, r)
	s.Total += r.Count
}

func (s *RunSummary) Failed() int {
	n := 0
	for _, r := range s.Categories {
		if r.Failed() {
			n++
		}
	}
	return n
}
