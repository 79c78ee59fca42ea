package monitor

import (
	"fmt"
	"sort"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/t77yq/fairsched/internal/config"
	"github.com/t77yq/fairsched/internal/model"
)

const (
	// sampleInterval is the fixed sampling cadence. It must stay constant:
	// the window capacity and the cron schedule are both derived from it.
	sampleInterval = 30 * time.Minute

	// sampleRetention is how long samples are kept per pool.
	sampleRetention = 7 * 24 * time.Hour

	// windowCapacity is the number of retained samples per pool.
	windowCapacity = int(sampleRetention / sampleInterval)
)

// Pools is the label surface of the host: all known labels and the
// distinction between real pools and the synthetic self-named label every
// node carries.
type Pools interface {
	Labels() []string
	IsTruePool(label string) bool
}

// Queue is the wait surface of the host's build queue.
type Queue interface {
	BuildableItems() []*model.QueueItem
}

// Tracker samples queue wait times per pool, evaluates configured SLA
// thresholds, and renders the wait-time figure. Run executes one full cycle;
// the Runner drives it on the fixed cadence, one cycle in flight at a time,
// so the windows map needs no locking of its own.
type Tracker struct {
	logger  *zap.Logger
	pools   Pools
	queue   Queue
	config  config.Source
	alerts  AlertPublisher
	cache   *FigureCache
	windows map[string]*Window
	now     func() time.Time
}

// NewTracker creates a tracker. alerts may be nil, in which case breaches
// are only logged.
func NewTracker(pools Pools, queue Queue, cfg config.Source, cache *FigureCache, alerts AlertPublisher, logger *zap.Logger) *Tracker {
	return &Tracker{
		logger:  logger.Named("pool-sla-monitor"),
		pools:   pools,
		queue:   queue,
		config:  cfg,
		alerts:  alerts,
		cache:   cache,
		windows: make(map[string]*Window),
		now:     time.Now,
	}
}

// Run executes one sampling cycle: sample the queue, update the per-pool
// windows, check SLA thresholds, and publish a fresh figure. It implements
// cron.Job.
func (t *Tracker) Run() {
	now := t.now()

	// lazily create a window for each true pool. Windows are never removed,
	// even when the pool later disappears from configuration, so the series
	// survives transient reconfiguration.
	for _, label := range t.pools.Labels() {
		if _, ok := t.windows[label]; !ok && t.pools.IsTruePool(label) {
			t.windows[label] = NewWindow(windowCapacity)
		}
	}

	snapshot := t.sample(now)
	t.logSnapshot(snapshot)

	// a pool with nothing waiting still gets a zero entry, so the series
	// has no temporal gaps
	for label, window := range t.windows {
		if entry, ok := snapshot[label]; ok {
			window.Push(*entry)
		} else {
			window.Push(model.SLAEntry{Timestamp: now})
		}
	}

	t.evaluate(snapshot)
	t.cache.Set(t.render(now))
	t.logHostStats()
}

// WindowSnapshot returns a copy of the retained entries for a pool, oldest
// first, or nil if the pool has never been observed.
func (t *Tracker) WindowSnapshot(label string) []model.SLAEntry {
	window, ok := t.windows[label]
	if !ok {
		return nil
	}
	return window.Snapshot()
}

// sample aggregates the wait time of every queued buildable item into one
// entry per true pool.
func (t *Tracker) sample(now time.Time) map[string]*model.SLAEntry {
	snapshot := make(map[string]*model.SLAEntry)
	for _, item := range t.queue.BuildableItems() {
		if item == nil || item.Task == nil {
			continue
		}
		label := item.Task.Label
		if label == "" || !t.pools.IsTruePool(label) {
			continue
		}
		entry, ok := snapshot[label]
		if !ok {
			entry = &model.SLAEntry{Timestamp: now}
			snapshot[label] = entry
		}
		entry.TotalWait += now.Sub(item.BuildableSince)
		entry.WaitingBuilds++
	}
	return snapshot
}

// logSnapshot records the cycle's aggregates at Info level so breaches can
// be investigated from the logs long after the fact.
func (t *Tracker) logSnapshot(snapshot map[string]*model.SLAEntry) {
	summary := make(map[string]string, len(snapshot))
	for label, entry := range snapshot {
		summary[label] = entry.String()
	}
	t.logger.Info("Current queue wait snapshot", zap.Any("pools", summary))
}

// evaluate checks each sampled pool against its configured SLA threshold.
func (t *Tracker) evaluate(snapshot map[string]*model.SLAEntry) {
	for label, entry := range snapshot {
		sla, ok := config.SLAFor(t.config, label)
		if !ok {
			t.logger.Debug("No SLA configured for pool", zap.String("pool", label))
			continue
		}
		if entry.WaitingBuilds <= 0 {
			// never divide by a zero build count
			continue
		}
		average := entry.TotalWait / time.Duration(entry.WaitingBuilds)
		if average <= sla {
			continue
		}

		avgMinutes := average.Minutes()
		slaMinutes := int64(sla / time.Minute)

		// field names are load-bearing: downstream log scraping keys on
		// pool, avg_wait_minutes and sla_minutes
		t.logger.Error(fmt.Sprintf("Queue wait time for pool %q exceeded SLA", label),
			zap.String("pool", label),
			zap.Float64("avg_wait_minutes", avgMinutes),
			zap.Int64("sla_minutes", slaMinutes))

		if t.alerts != nil {
			alert := &model.SLAAlert{
				Pool:               label,
				AverageWaitMinutes: avgMinutes,
				SLAMinutes:         slaMinutes,
				ObservedAt:         entry.Timestamp,
			}
			if err := t.alerts.Publish(alert); err != nil {
				t.logger.Warn("Failed to publish SLA breach alert",
					zap.String("pool", label),
					zap.Error(err))
			}
		}
	}
}

// render builds the figure from window snapshots, one series per pool,
// sorted by pool name.
func (t *Tracker) render(now time.Time) *Figure {
	labels := make([]string, 0, len(t.windows))
	for label := range t.windows {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	figure := &Figure{
		GeneratedAt: now,
		YAxis:       "minutes",
		Series:      make([]Series, 0, len(labels)),
	}
	for _, label := range labels {
		entries := t.windows[label].Snapshot()
		points := make([]Point, 0, len(entries))
		for _, entry := range entries {
			points = append(points, Point{
				Time:    entry.Timestamp,
				Minutes: entry.AverageWaitMinutes(),
			})
		}
		figure.Series = append(figure.Series, Series{Pool: label, Points: points})
	}
	return figure
}

// logHostStats records the monitor host's own utilization once per cycle.
func (t *Tracker) logHostStats() {
	cpuPercent, err := cpu.Percent(0, false)
	if err != nil || len(cpuPercent) == 0 {
		return
	}
	memInfo, err := mem.VirtualMemory()
	if err != nil {
		return
	}
	t.logger.Debug("Host stats",
		zap.Float64("cpu_usage", cpuPercent[0]),
		zap.Float64("memory_usage", memInfo.UsedPercent))
}
