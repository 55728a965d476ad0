package domain

import "time"

type Document struct {
	Key     string
	Path    string
	Text    string
	ModTime time.Time
}

type Segment struct {
	Index int
	Text  string
}

type DocumentStatus string

const (
	StatusSucceeded DocumentStatus = "succeeded"
	StatusFailed    DocumentStatus = "failed"
)

type DocumentResult struct {
	Key          string
	Status       DocumentStatus
	Summary      string
	OutputPath   string
	SegmentCount int
	Err          error
	PersistErr   error
}

type Run struct {
	ID         string
	Model      string
	StartedAt  time.Time
	FinishedAt time.Time
	Documents  int64
	Succeeded  int64
	Failed     int64
}

type RunDocument struct {
	RunID       string
	DocumentKey string
	Status      DocumentStatus
	OutputPath  string
	Segments    int64
	Error       string
}
