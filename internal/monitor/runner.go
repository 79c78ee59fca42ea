package monitor

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner drives the tracker on its fixed sampling cadence. Cycles never
// overlap: the next trigger is delayed until the previous one finishes.
type Runner struct {
	logger  *zap.Logger
	cron    *cron.Cron
	tracker *Tracker
}

// cronLogger adapts zap.Logger to cron.Logger
type cronLogger struct {
	logger *zap.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, zap.Error(err))
}

// NewRunner creates a runner for the tracker.
func NewRunner(tracker *Tracker, logger *zap.Logger) *Runner {
	cl := &cronLogger{logger: logger.Named("cron")}
	return &Runner{
		logger: logger,
		cron: cron.New(
			cron.WithChain(cron.Recover(cl), cron.DelayIfStillRunning(cl)),
		),
		tracker: tracker,
	}
}

// Start schedules the sampling job. The recurrence period is a constant and
// must not be computed dynamically.
func (r *Runner) Start() {
	r.cron.Schedule(cron.Every(sampleInterval), r.tracker)
	r.cron.Start()
	r.logger.Info("Pool SLA monitor started",
		zap.Duration("sample_interval", sampleInterval),
		zap.Int("window_capacity", windowCapacity))
}

// Stop stops the runner and waits for an in-flight cycle to finish.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("Pool SLA monitor stopped")
}
