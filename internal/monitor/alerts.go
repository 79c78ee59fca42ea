package monitor

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/t77yq/fairsched/internal/model"
)

const (
	alertStreamName = "SLA_ALERTS"
	alertSubject    = "sla.breach"
)

// AlertPublisher delivers SLA breach events to interested consumers.
type AlertPublisher interface {
	Publish(alert *model.SLAAlert) error
}

// NATSAlertPublisher publishes breach events to a JetStream stream so
// downstream consumers can react without scraping logs.
type NATSAlertPublisher struct {
	logger *zap.Logger
	js     nats.JetStreamContext
}

// NewNATSAlertPublisher creates the publisher, ensuring the alert stream
// exists.
func NewNATSAlertPublisher(js nats.JetStreamContext, logger *zap.Logger) (*NATSAlertPublisher, error) {
	stream, err := js.StreamInfo(alertStreamName)
	if err != nil && err != nats.ErrStreamNotFound {
		return nil, fmt.Errorf("failed to get stream info: %w", err)
	}

	if stream == nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     alertStreamName,
			Subjects: []string{alertSubject},
			Storage:  nats.FileStorage,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create stream: %w", err)
		}
	}

	return &NATSAlertPublisher{
		logger: logger.Named("sla-alerts"),
		js:     js,
	}, nil
}

// Publish implements AlertPublisher.Publish.
func (p *NATSAlertPublisher) Publish(alert *model.SLAAlert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	if _, err := p.js.Publish(alertSubject, data); err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}

	p.logger.Info("SLA breach alert published",
		zap.String("pool", alert.Pool),
		zap.Float64("avg_wait_minutes", alert.AverageWaitMinutes),
		zap.Int64("sla_minutes", alert.SLAMinutes))

	return nil
}
