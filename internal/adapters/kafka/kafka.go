package kafka

import (
	"log/slog"

	"github.com/IBM/sarama"
)

// Journal publishes every hub broadcast to a Kafka topic for offline
// consumers (session replays, analytics pipelines). It satisfies the hub's
// Journal interface.
type Journal struct {
	producer sarama.SyncProducer
	topic    string
}

// NewJournal builds a producer against the given brokers.
func NewJournal(brokers []string, topic string) (*Journal, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Retry.Max = 3
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Version = sarama.V2_0_0_0
	config.ClientID = "maplive-service"

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}
	return &Journal{producer: producer, topic: topic}, nil
}

// Record publishes one serialized event, keyed by room so per-room order
// is preserved within a partition. Failures are logged, never surfaced:
// the journal is best-effort and must not disturb live delivery.
func (j *Journal) Record(room string, payload []byte) {
	_, _, err := j.producer.SendMessage(&sarama.ProducerMessage{
		Topic: j.topic,
		Key:   sarama.StringEncoder(room),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		slog.Warn("event journal publish failed", "room", room, "error", err)
	}
}

// Close shuts the producer down.
func (j *Journal) Close() error {
	return j.producer.Close()
}
