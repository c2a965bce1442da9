package planmetrics

import (
	"encoding/json"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	log "github.com/sirupsen/logrus"
)

// record is the JSON body produced onto the metrics topic for each
// observation; kept deliberately flat and small since this is a
// high-volume, fire-and-forget stream.
type record struct {
	Label      string `json:"label"`
	Outcome    string `json:"outcome"`
	DurationMs int64  `json:"duration_ms"`
	AtUnixNano int64  `json:"at_unix_nano"`
}

// KafkaRecorder publishes stage observations onto a Kafka topic for
// offline analysis, using the same ConfigMap-from-props construction as
// kafka.CfltMessageProviderFactory.NewMessageProvider but built around a
// Producer instead of a Consumer.
type KafkaRecorder struct {
	topic    string
	producer *kafka.Producer
}

// NewKafkaRecorder builds a Recorder that publishes to topic via a
// Confluent producer configured from props (broker list, security, etc).
func NewKafkaRecorder(topic string, props map[string]string) (*KafkaRecorder, error) {
	cm := &kafka.ConfigMap{}
	for k, v := range props {
		if err := cm.SetKey(k, v); err != nil {
			return nil, err
		}
	}
	producer, err := kafka.NewProducer(cm)
	if err != nil {
		return nil, err
	}
	r := &KafkaRecorder{topic: topic, producer: producer}
	go r.drainDeliveryReports()
	return r, nil
}

func (r *KafkaRecorder) drainDeliveryReports() {
	for e := range r.producer.Events() {
		if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			log.Warnf("planmetrics: delivery failed: %v", m.TopicPartition.Error)
		}
	}
}

// Observe publishes a record for this stage execution. Marshal or produce
// failures are logged and swallowed, never returned, since metrics must
// never be able to fail a request (spec §7).
func (r *KafkaRecorder) Observe(label string, outcome Outcome, duration time.Duration) {
	body, err := json.Marshal(record{
		Label:      label,
		Outcome:    outcome.String(),
		DurationMs: duration.Milliseconds(),
		AtUnixNano: time.Now().UnixNano(),
	})
	if err != nil {
		log.Warnf("planmetrics: failed to marshal observation: %v", err)
		return
	}
	err = r.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &r.topic, Partition: kafka.PartitionAny},
		Value:          body,
	}, nil)
	if err != nil {
		log.Warnf("planmetrics: failed to enqueue observation: %v", err)
	}
}

// Close flushes outstanding deliveries and releases the producer.
func (r *KafkaRecorder) Close() error {
	r.producer.Flush(5000)
	r.producer.Close()
	return nil
}
