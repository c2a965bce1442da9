package planmetrics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/squareup/kvclient/conf"
	"github.com/squareup/kvclient/planmetrics"
)

func TestNewRecorderDefaultsToNoop(t *testing.T) {
	cfg := conf.DefaultConfig()
	rec, err := planmetrics.NewRecorder(cfg)
	require.NoError(t, err)
	_, isNoop := rec.(planmetrics.NoopRecorder)
	require.True(t, isNoop)

	// A Noop recorder must tolerate being observed against with no sink
	// configured at all; this is the fast path every caller gets for free.
	rec.Observe("get", planmetrics.OutcomeSuccess, time.Millisecond)
}

func TestNewRecorderBuildsKafkaRecorder(t *testing.T) {
	cfg := conf.DefaultConfig()
	cfg.MetricsSink = conf.MetricsSinkKafka
	cfg.KafkaMetricsTopic = "kvclient.plan.outcomes"
	cfg.KafkaBrokerProps = map[string]string{"bootstrap.servers": "127.0.0.1:9092"}

	rec, err := planmetrics.NewRecorder(cfg)
	require.NoError(t, err)
	kr, ok := rec.(*planmetrics.KafkaRecorder)
	require.True(t, ok)
	defer kr.Close()

	// Observe must not block or panic even with no broker actually
	// reachable; delivery failures are only ever logged (spec §7).
	rec.Observe("get", planmetrics.OutcomeSuccess, time.Millisecond)
}
