package monitor

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/t77yq/fairsched/internal/model"
	"github.com/t77yq/fairsched/internal/testutil"
)

func TestNATSAlertPublisher(t *testing.T) {
	js, cleanup := testutil.SetupJetStream(t)
	defer cleanup()

	publisher, err := NewNATSAlertPublisher(js, zap.NewNop())
	require.NoError(t, err)

	t.Run("Stream created", func(t *testing.T) {
		stream, err := js.StreamInfo(alertStreamName)
		require.NoError(t, err)
		assert.Equal(t, alertStreamName, stream.Config.Name)
		assert.Equal(t, []string{alertSubject}, stream.Config.Subjects)
	})

	t.Run("Publish breach", func(t *testing.T) {
		sub, err := js.SubscribeSync(alertSubject)
		require.NoError(t, err)
		defer sub.Unsubscribe()

		alert := &model.SLAAlert{
			Pool:               "pool",
			AverageWaitMinutes: 42.5,
			SLAMinutes:         30,
			ObservedAt:         time.Now().UTC(),
		}
		require.NoError(t, publisher.Publish(alert))

		msg, err := sub.NextMsg(5 * time.Second)
		require.NoError(t, err)

		var received model.SLAAlert
		require.NoError(t, json.Unmarshal(msg.Data, &received))
		assert.Equal(t, "pool", received.Pool)
		assert.InDelta(t, 42.5, received.AverageWaitMinutes, 1e-9)
		assert.Equal(t, int64(30), received.SLAMinutes)
	})
}
