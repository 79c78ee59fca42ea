package model

import (
	"fmt"
	"time"
)

// SLAEntry is one sampling instant's aggregate queue-wait data for a pool.
// TotalWait and WaitingBuilds accumulate additively across all builds waiting
// for the pool at sample time.
type SLAEntry struct {
	Timestamp     time.Time     `json:"timestamp"`
	TotalWait     time.Duration `json:"total_wait"`
	WaitingBuilds int           `json:"waiting_builds"`
}

// AverageWaitMinutes returns the average wait in minutes, or zero when no
// builds were waiting. The zero-count guard matters: an entry pushed for a
// quiet cycle has no builds to divide by.
func (e SLAEntry) AverageWaitMinutes() float64 {
	if e.WaitingBuilds <= 0 {
		return 0
	}
	return (e.TotalWait / time.Duration(e.WaitingBuilds)).Minutes()
}

func (e SLAEntry) String() string {
	return fmt.Sprintf("%s - %d builds", e.TotalWait, e.WaitingBuilds)
}

// SLAAlert is an SLA breach event for one pool.
type SLAAlert struct {
	Pool               string    `json:"pool"`
	AverageWaitMinutes float64   `json:"average_wait_minutes"`
	SLAMinutes         int64     `json:"sla_minutes"`
	ObservedAt         time.Time `json:"observed_at"`
}
