package operations

import (
	"fmt"
	"sync"
	"time"
)

// ProgressTracker tracks how many channel sets a run has finished
type ProgressTracker struct {
	mu        sync.Mutex
	total     int
	done      int
	skipped   int
	current   int
	startTime time.Time
}

// Snapshot is a point-in-time copy of a run's progress
type Snapshot struct {
	Total      int     `json:"total"`
	Done       int     `json:"done"`
	Skipped    int     `json:"skipped"`
	CurrentSet int     `json:"current_set"`
	Percentage float64 `json:"percentage"`
	Elapsed    string  `json:"elapsed"`
	ETA        string  `json:"eta"`
	Complete   bool    `json:"complete"`
}

// NewProgressTracker creates a tracker for total sets
func NewProgressTracker(total int) *ProgressTracker {
	return &ProgressTracker{total: total, current: -1, startTime: time.Now()}
}

// Start marks id as the set being processed
func (p *ProgressTracker) Start(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = id
}

// Done counts one finished set; skipped sets are tallied separately and
// excluded from the rate used for the ETA.
func (p *ProgressTracker) Done(skipped bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	if skipped {
		p.skipped++
	}
}

// Snapshot returns the current progress
func (p *ProgressTracker) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Snapshot{
		Total:      p.total,
		Done:       p.done,
		Skipped:    p.skipped,
		CurrentSet: p.current,
		Elapsed:    formatDuration(time.Since(p.startTime)),
		ETA:        p.eta(),
		Complete:   p.done >= p.total,
	}
	if p.total > 0 {
		s.Percentage = float64(p.done) / float64(p.total) * 100
	}
	return s
}

func (p *ProgressTracker) eta() string {
	if p.done >= p.total {
		return "0 seconds"
	}
	computed := p.done - p.skipped
	if computed == 0 {
		return "calculating..."
	}

	perSet := time.Since(p.startTime).Seconds() / float64(computed)
	if perSet == 0 {
		return "calculating..."
	}
	return formatDuration(time.Duration(perSet * float64(p.total-p.done) * float64(time.Second)))
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.0f seconds", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.1f minutes", d.Minutes())
	default:
		return fmt.Sprintf("%.1f hours", d.Hours())
	}
}
