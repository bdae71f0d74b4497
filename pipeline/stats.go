package pipeline

import (
	"fmt"
	"strings"
	"time"
)

// Stats accumulates counters over one run. The pipeline is single-threaded
// per run, so plain ints are fine.
type Stats struct {
	Cities         int
	CardsSeen      int
	Extracted      int
	Skipped        int
	DetailFailures int
	FieldErrors    int
	PetFriendly    int
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Summary renders the counters as a human-readable run report.
func (s *Stats) Summary() string {
	var b strings.Builder
	b.WriteString("Run summary:\n")
	fmt.Fprintf(&b, "  Cities crawled:     %d\n", s.Cities)
	fmt.Fprintf(&b, "  Cards seen:         %d\n", s.CardsSeen)
	fmt.Fprintf(&b, "  Hotels extracted:   %d\n", s.Extracted)
	fmt.Fprintf(&b, "  Already processed:  %d\n", s.Skipped)
	fmt.Fprintf(&b, "  Detail failures:    %d\n", s.DetailFailures)
	fmt.Fprintf(&b, "  Field errors:       %d\n", s.FieldErrors)
	fmt.Fprintf(&b, "  Pet friendly:       %d\n", s.PetFriendly)
	if !s.StartedAt.IsZero() && !s.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "  Duration:           %s\n", s.FinishedAt.Sub(s.StartedAt).Round(time.Second))
	}
	return b.String()
}
