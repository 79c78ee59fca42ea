package monitor

import (
	"sync/atomic"
	"time"
)

// Figure is the rendered SLA time-series artifact the UI layer reads. One
// series per pool, average wait in minutes per sample instant, no title.
type Figure struct {
	GeneratedAt time.Time `json:"generated_at"`
	YAxis       string    `json:"y_axis"`
	Series      []Series  `json:"series"`
}

// Series is the wait-time history of one pool.
type Series struct {
	Pool   string  `json:"pool"`
	Points []Point `json:"points"`
}

// Point is one sample instant of a series.
type Point struct {
	Time    time.Time `json:"time"`
	Minutes float64   `json:"minutes"`
}

// FigureCache holds the most recently rendered figure. The tracker replaces
// it once per sampling cycle by a single atomic pointer swap; readers never
// block and may observe the previous cycle's figure.
type FigureCache struct {
	figure atomic.Pointer[Figure]
}

// NewFigureCache creates a cache seeded with an empty placeholder figure.
func NewFigureCache() *FigureCache {
	c := &FigureCache{}
	c.figure.Store(&Figure{YAxis: "minutes"})
	return c
}

// Latest returns the most recently published figure.
func (c *FigureCache) Latest() *Figure {
	return c.figure.Load()
}

// Set publishes a new figure, replacing the previous one.
func (c *FigureCache) Set(figure *Figure) {
	c.figure.Store(figure)
}
