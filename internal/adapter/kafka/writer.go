package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/couchcryptid/wildfire-etl/internal/config"
	"github.com/couchcryptid/wildfire-etl/internal/domain"
	"github.com/couchcryptid/wildfire-etl/internal/region"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	publishChunk    = 500
	publishAttempts = 3
)

// Writer publishes dataset rows to a Kafka topic.
// It implements pipeline.DatasetSink.
type Writer struct {
	writer  messageWriter
	logger  *slog.Logger
	backoff time.Duration
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger, backoff: 200 * time.Millisecond}
}

// Publish writes one message per dataset row, keyed by region code so a
// region's rows stay on one partition in order.
func (w *Writer) Publish(ctx context.Context, r region.Region, d domain.Dataset) (int, error) {
	published := 0
	for start := 0; start < len(d.Records); start += publishChunk {
		end := min(start+publishChunk, len(d.Records))
		msgs := make([]kafkago.Message, 0, end-start)
		for _, rec := range d.Records[start:end] {
			msg, err := serializeToMessage(r, rec)
			if err != nil {
				return published, err
			}
			msgs = append(msgs, msg)
		}
		if err := w.writeWithRetry(ctx, msgs); err != nil {
			return published, fmt.Errorf("publish %s rows: %w", r.Code, err)
		}
		published += len(msgs)
	}
	w.logger.Info("dataset published", "region", r.Code, "rows", published)
	return published, nil
}

func (w *Writer) writeWithRetry(ctx context.Context, msgs []kafkago.Message) error {
	backoff := w.backoff
	var err error
	for attempt := 1; attempt <= publishAttempts; attempt++ {
		if err = w.writer.WriteMessages(ctx, msgs...); err == nil {
			return nil
		}
		if attempt == publishAttempts || ctx.Err() != nil {
			break
		}
		w.logger.Warn("kafka write failed, retrying", "error", err, "attempt", attempt, "backoff", backoff)
		if !retry.SleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, 5*time.Second)
	}
	return err
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// rowMessage is the JSON payload of one dataset row.
type rowMessage struct {
	Region          string   `json:"region"`
	Lat             float64  `json:"lat"`
	Lon             float64  `json:"lon"`
	ObservedAt      string   `json:"data_pas"`
	Label           string   `json:"target"`
	State           string   `json:"estado,omitempty"`
	Municipality    string   `json:"municipio,omitempty"`
	Precipitation   *float64 `json:"precipitacao,omitempty"`
	DaysWithoutRain *float64 `json:"numero_dias_sem_chuva,omitempty"`
	Synthetic       bool     `json:"synthetic"`
}

// serializeToMessage marshals one occurrence into a Kafka message.
func serializeToMessage(r region.Region, o domain.Occurrence) (kafkago.Message, error) {
	data, err := json.Marshal(rowMessage{
		Region:          r.Code,
		Lat:             o.Lat,
		Lon:             o.Lon,
		ObservedAt:      o.ObservedAt.Format(domain.TimestampLayout),
		Label:           string(o.Label),
		State:           o.State,
		Municipality:    o.Municipality,
		Precipitation:   o.Precipitation,
		DaysWithoutRain: o.DaysWithoutRain,
		Synthetic:       o.Synthetic(),
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize dataset row: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(r.Code),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "label", Value: []byte(o.Label)},
			{Key: "region", Value: []byte(r.Code)},
		},
	}, nil
}
