package planmetrics

import "github.com/squareup/kvclient/conf"

// NewRecorder builds the Recorder a plan stack should observe through,
// selected by cfg.MetricsSink (spec §7): MetricsSinkNone (the zero value
// and conf.DefaultConfig's default) costs nothing, MetricsSinkKafka opens a
// real producer against cfg.KafkaBrokerProps and publishes to
// cfg.KafkaMetricsTopic.
func NewRecorder(cfg conf.Config) (Recorder, error) {
	switch cfg.MetricsSink {
	case conf.MetricsSinkKafka:
		return NewKafkaRecorder(cfg.KafkaMetricsTopic, cfg.KafkaBrokerProps)
	case conf.MetricsSinkNone:
		return NoopRecorder{}, nil
	default:
		return NoopRecorder{}, nil
	}
}
