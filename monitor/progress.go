package monitor

import (
	"sync"
	"time"
)

// ProgressBar tracks how far a long-running piece of work -- typically
// one exploration branch in package explore, fanning out many parallel
// schedules -- has gotten, for display on the monitor's /api/progress
// endpoint. Adapted from monitoring/progress.go field for field; the
// only change is that "in progress" here means tasks spawned but not yet
// completed within a simulation run, rather than akita's hardware
// request pipeline stages.
type ProgressBar struct {
	sync.Mutex
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

// IncrementInProgress adds amount to the in-progress count.
func (b *ProgressBar) IncrementInProgress(amount uint64) {
	b.Lock()
	defer b.Unlock()
	b.InProgress += amount
}

// IncrementFinished adds amount to the finished count.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()
	b.Finished += amount
}

// MoveInProgressToFinished shifts amount from in-progress to finished.
func (b *ProgressBar) MoveInProgressToFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()
	b.InProgress -= amount
	b.Finished += amount
}
