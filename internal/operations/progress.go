package operations

import (
	"fmt"
	"sync"
	"time"
)

// ProgressTracker tracks progress through a known number of items
type ProgressTracker struct {
	mu        sync.Mutex
	step      string
	total     int
	current   int
	startTime time.Time
	message   string
}

// NewProgressTracker creates a new progress tracker
func NewProgressTracker(step string, total int) *ProgressTracker {
	return &ProgressTracker{
		step:      step,
		total:     total,
		startTime: time.Now(),
	}
}

// Update sets the current position
func (p *ProgressTracker) Update(current int, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = current
	p.message = message
}

// Percentage returns the completed share, 0 to 100
func (p *ProgressTracker) Percentage() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.total <= 0 {
		return 0
	}
	return float64(p.current) / float64(p.total) * 100
}

// ETA estimates the time remaining from the average pace so far
func (p *ProgressTracker) ETA() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == 0 || p.total == 0 {
		return "calculating..."
	}

	elapsed := time.Since(p.startTime)
	rate := float64(p.current) / elapsed.Seconds()
	if rate == 0 {
		return "calculating..."
	}

	remaining := float64(p.total-p.current) / rate
	switch {
	case remaining < 60:
		return fmt.Sprintf("%.0f seconds", remaining)
	case remaining < 3600:
		return fmt.Sprintf("%.1f minutes", remaining/60)
	default:
		return fmt.Sprintf("%.1f hours", remaining/3600)
	}
}
