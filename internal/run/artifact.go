package run

import "time"

// Artifact kinds recorded in the manifest.
const (
	KindReport = "report"
	KindChart  = "chart"
	KindTable  = "table"
)

// Artifact is one file produced by an analysis run.
type Artifact struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title,omitempty"`
	Bytes     int64     `json:"bytes"`
	CreatedAt time.Time `json:"created_at"`
}
