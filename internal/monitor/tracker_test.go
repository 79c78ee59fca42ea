package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/t77yq/fairsched/internal/cluster"
	"github.com/t77yq/fairsched/internal/config"
	"github.com/t77yq/fairsched/internal/model"
)

// capturingPublisher records published alerts.
type capturingPublisher struct {
	alerts []*model.SLAAlert
}

func (p *capturingPublisher) Publish(alert *model.SLAAlert) error {
	p.alerts = append(p.alerts, alert)
	return nil
}

func newTestTracker(t *testing.T, cfg config.Source, alerts AlertPublisher, nodes ...*model.Node) (*cluster.State, *Tracker, *FigureCache) {
	t.Helper()

	state := cluster.NewState(zap.NewNop())
	for _, node := range nodes {
		require.NoError(t, state.AddNode(node))
	}
	if cfg == nil {
		cfg = config.StaticSource{}
	}
	cache := NewFigureCache()
	tracker := NewTracker(state, state, cfg, cache, alerts, zap.NewNop())
	return state, tracker, cache
}

func labeledNode(name, label string) *model.Node {
	return &model.Node{
		Name:          name,
		Online:        true,
		Executors:     1,
		IdleExecutors: 1,
		Labels:        []string{label},
	}
}

func TestTrackerZeroGapSeries(t *testing.T) {
	_, tracker, cache := newTestTracker(t, nil, nil,
		labeledNode("node-a", "pool"),
		labeledNode("node-b", "pool"))

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return now }

	tracker.Run()
	now = now.Add(sampleInterval)
	tracker.Run()

	// two cycles without waiting builds still yield two zero entries
	entries := tracker.WindowSnapshot("pool")
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Zero(t, entry.WaitingBuilds)
		assert.Zero(t, entry.TotalWait)
	}

	figure := cache.Latest()
	require.Len(t, figure.Series, 1)
	assert.Equal(t, "pool", figure.Series[0].Pool)
	require.Len(t, figure.Series[0].Points, 2)
	assert.Zero(t, figure.Series[0].Points[0].Minutes)
}

func TestTrackerSamplesWaitingBuilds(t *testing.T) {
	state, tracker, cache := newTestTracker(t, nil, nil,
		labeledNode("node-a", "pool"),
		labeledNode("node-b", "pool"))

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return now }

	task := &model.Task{Name: "project1", Label: "pool"}
	state.EnqueueAt(task, now.Add(-40*time.Minute))
	state.EnqueueAt(task, now.Add(-80*time.Minute))

	tracker.Run()

	entries := tracker.WindowSnapshot("pool")
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].WaitingBuilds)
	assert.Equal(t, 120*time.Minute, entries[0].TotalWait)

	figure := cache.Latest()
	require.Len(t, figure.Series, 1)
	require.Len(t, figure.Series[0].Points, 1)
	assert.InDelta(t, 60.0, figure.Series[0].Points[0].Minutes, 1e-9)
	assert.Equal(t, "minutes", figure.YAxis)
}

func TestTrackerSLABreach(t *testing.T) {
	cfg := config.StaticSource{config.SLAKey("pool"): "30"}
	publisher := &capturingPublisher{}
	state, tracker, _ := newTestTracker(t, cfg, publisher,
		labeledNode("node-a", "pool"),
		labeledNode("node-b", "pool"))

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return now }

	task := &model.Task{Name: "project1", Label: "pool"}
	state.EnqueueAt(task, now.Add(-60*time.Minute))

	tracker.Run()

	require.Len(t, publisher.alerts, 1)
	alert := publisher.alerts[0]
	assert.Equal(t, "pool", alert.Pool)
	assert.InDelta(t, 60.0, alert.AverageWaitMinutes, 1e-9)
	assert.Equal(t, int64(30), alert.SLAMinutes)
}

func TestTrackerNoBreachUnderThreshold(t *testing.T) {
	cfg := config.StaticSource{config.SLAKey("pool"): "30"}
	publisher := &capturingPublisher{}
	state, tracker, _ := newTestTracker(t, cfg, publisher,
		labeledNode("node-a", "pool"),
		labeledNode("node-b", "pool"))

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return now }

	state.EnqueueAt(&model.Task{Name: "project1", Label: "pool"}, now.Add(-10*time.Minute))
	tracker.Run()

	assert.Empty(t, publisher.alerts)
}

func TestTrackerMalformedSLAIgnored(t *testing.T) {
	cfg := config.StaticSource{config.SLAKey("pool"): "soon"}
	publisher := &capturingPublisher{}
	state, tracker, _ := newTestTracker(t, cfg, publisher,
		labeledNode("node-a", "pool"),
		labeledNode("node-b", "pool"))

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return now }

	state.EnqueueAt(&model.Task{Name: "project1", Label: "pool"}, now.Add(-600*time.Minute))
	tracker.Run()

	// malformed configuration means no SLA, not an error
	assert.Empty(t, publisher.alerts)
}

func TestTrackerIgnoresSyntheticLabels(t *testing.T) {
	_, tracker, cache := newTestTracker(t, nil, nil,
		&model.Node{Name: "solo", Online: true, Executors: 1, IdleExecutors: 1},
		labeledNode("node-a", "pool"),
		labeledNode("node-b", "pool"))

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return now }
	tracker.Run()

	// the self-named labels never get a window or a series
	assert.Nil(t, tracker.WindowSnapshot("solo"))
	assert.Nil(t, tracker.WindowSnapshot("node-a"))

	figure := cache.Latest()
	require.Len(t, figure.Series, 1)
	assert.Equal(t, "pool", figure.Series[0].Pool)
}

func TestTrackerWindowSurvivesPoolRemoval(t *testing.T) {
	state, tracker, cache := newTestTracker(t, nil, nil,
		labeledNode("node-a", "pool"),
		labeledNode("node-b", "pool"))

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return now }
	tracker.Run()

	state.RemoveNode("node-a")
	state.RemoveNode("node-b")
	now = now.Add(sampleInterval)
	tracker.Run()

	// the window outlives the pool's configuration
	assert.Len(t, tracker.WindowSnapshot("pool"), 2)
	require.Len(t, cache.Latest().Series, 1)
	assert.Equal(t, "pool", cache.Latest().Series[0].Pool)
}

func TestFigureCacheLastWriterWins(t *testing.T) {
	cache := NewFigureCache()

	placeholder := cache.Latest()
	require.NotNil(t, placeholder)
	assert.Equal(t, "minutes", placeholder.YAxis)
	assert.Empty(t, placeholder.Series)

	first := &Figure{GeneratedAt: time.Now(), YAxis: "minutes"}
	second := &Figure{GeneratedAt: time.Now().Add(time.Minute), YAxis: "minutes"}
	cache.Set(first)
	cache.Set(second)

	assert.Same(t, second, cache.Latest())
}
