package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/t77yq/fairsched/internal/cluster"
	"github.com/t77yq/fairsched/internal/config"
	"github.com/t77yq/fairsched/internal/dispatch"
	"github.com/t77yq/fairsched/internal/history"
	"github.com/t77yq/fairsched/internal/model"
	"github.com/t77yq/fairsched/internal/monitor"
	"github.com/t77yq/fairsched/internal/scheduler"
)

func main() {
	// Initialize logger
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Load configuration
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	if err := viper.ReadInConfig(); err != nil {
		logger.Fatal("Failed to read config file", zap.Error(err))
	}

	// Build the cluster state from configuration
	state := cluster.NewState(logger)
	var pools []poolConfig
	if err := viper.UnmarshalKey("pools", &pools); err != nil {
		logger.Fatal("Failed to parse pool configuration", zap.Error(err))
	}
	for _, pool := range pools {
		for _, name := range pool.Nodes {
			node := &model.Node{
				Name:          name,
				Online:        true,
				Executors:     pool.Executors,
				IdleExecutors: pool.Executors,
			}
			if pool.Label != "" {
				node.Labels = []string{pool.Label}
			}
			if err := state.AddNode(node); err != nil {
				logger.Fatal("Failed to register node",
					zap.String("node", name),
					zap.Error(err))
			}
		}
	}

	// Create build history storage
	store, err := history.NewSQLiteStore(logger, viper.GetString("history.path"))
	if err != nil {
		logger.Fatal("Failed to create build history storage", zap.Error(err))
	}
	defer store.Close()

	// Connect to NATS for SLA breach alerts. The monitor degrades to
	// log-only breach reporting when no URL is configured.
	var alerts monitor.AlertPublisher
	var nc *nats.Conn
	if url := viper.GetString("nats.url"); url != "" {
		opts := []nats.Option{
			nats.Name(viper.GetString("app.name")),
			nats.MaxReconnects(viper.GetInt("nats.max_reconnects")),
			nats.ReconnectWait(viper.GetDuration("nats.reconnect_wait")),
			nats.Timeout(viper.GetDuration("nats.connect_timeout")),
			nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
				logger.Warn("NATS disconnected", zap.Error(err))
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				logger.Info("NATS reconnected",
					zap.String("url", nc.ConnectedUrl()))
			}),
		}
		nc, err = nats.Connect(url, opts...)
		if err != nil {
			logger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer nc.Close()

		js, err := nc.JetStream()
		if err != nil {
			logger.Fatal("Failed to create JetStream context", zap.Error(err))
		}
		alerts, err = monitor.NewNATSAlertPublisher(js, logger)
		if err != nil {
			logger.Fatal("Failed to create alert publisher", zap.Error(err))
		}
		logger.Info("Connected to NATS", zap.String("url", nc.ConnectedUrl()))
	}

	// Wire the fairness layer: the decision engine, its host loop, and the
	// SLA monitor with its figure cache.
	engine := dispatch.NewEngine(state, store, logger)
	host := scheduler.New(state, engine, store, logger)

	cache := monitor.NewFigureCache()
	tracker := monitor.NewTracker(state, state, config.NewViperSource(nil), cache, alerts, logger)
	runner := monitor.NewRunner(tracker, logger)
	runner.Start()
	defer runner.Stop()

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	// Submit example builds
	var tasks []taskConfig
	if err := viper.UnmarshalKey("tasks", &tasks); err != nil {
		logger.Fatal("Failed to parse task configuration", zap.Error(err))
	}

	go func() {
		ticker := time.NewTicker(viper.GetDuration("tasks_interval"))
		defer ticker.Stop()

		projects := make([]*model.Task, 0, len(tasks))
		for _, cfg := range tasks {
			projects = append(projects, &model.Task{Name: cfg.Name, Label: cfg.Label})
		}

		for i := 0; ; i++ {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if len(projects) == 0 {
					continue
				}
				task := projects[i%len(projects)]
				build, err := host.RunBuild(ctx, task)
				if err != nil {
					logger.Warn("Build not scheduled",
						zap.String("task", task.Name),
						zap.Error(err))
					continue
				}
				logger.Info("Build finished",
					zap.String("task", task.Name),
					zap.String("node", build.NodeName),
					zap.String("build_id", build.ID))
			}
		}
	}()

	// Periodically report the latest figure and clean up old history
	go func() {
		figureTicker := time.NewTicker(1 * time.Minute)
		cleanupTicker := time.NewTicker(24 * time.Hour)
		defer figureTicker.Stop()
		defer cleanupTicker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-figureTicker.C:
				figure := cache.Latest()
				logger.Info("Latest SLA figure",
					zap.Time("generated_at", figure.GeneratedAt),
					zap.Int("series", len(figure.Series)))
			case <-cleanupTicker.C:
				cutoff := time.Now().AddDate(0, 0, -30)
				if err := store.DeleteBefore(ctx, cutoff); err != nil {
					logger.Error("Failed to cleanup old build history", zap.Error(err))
				}
			}
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	logger.Info("Server shutting down gracefully")
}

// poolConfig is one pool definition from the config file.
type poolConfig struct {
	Label     string   `mapstructure:"label"`
	Nodes     []string `mapstructure:"nodes"`
	Executors int      `mapstructure:"executors"`
}

// taskConfig is one example project from the config file.
type taskConfig struct {
	Name  string `mapstructure:"name"`
	Label string `mapstructure:"label"`
}
