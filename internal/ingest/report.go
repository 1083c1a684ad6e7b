package ingest

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Reasons a relation is dropped
const (
	DropUnknownReference   = "unknown_reference"   // id not present in the source model
	DropUnresolvedEndpoint = "unresolved_endpoint" // element exists but is not a node
)

// PhaseStats times one builder phase
type PhaseStats struct {
	Name     string
	Elements int
	Duration time.Duration
}

// Throughput returns elements per second
func (p PhaseStats) Throughput() float64 {
	if p.Duration <= 0 {
		return 0
	}
	return float64(p.Elements) / p.Duration.Seconds()
}

// Report contains the results of one load job
type Report struct {
	JobID   string
	Sources []string

	NodesCreated    int
	NodesReused     int
	ElementsSkipped int

	RelationsCreated int
	RelationsDropped int
	DropReasons      map[string]int

	Phases           []PhaseStats
	LastSurrogateKey uint64
	Duration         time.Duration
}

func newReport() *Report {
	return &Report{
		JobID:       uuid.New().String(),
		DropReasons: make(map[string]int),
	}
}

func (r *Report) drop(reason string) {
	r.RelationsDropped++
	r.DropReasons[reason]++
}

// String summarizes the report on one line
func (r *Report) String() string {
	return fmt.Sprintf("job %s: %d nodes created, %d reused, %d relations created, %d dropped",
		r.JobID, r.NodesCreated, r.NodesReused, r.RelationsCreated, r.RelationsDropped)
}
