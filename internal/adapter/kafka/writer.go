package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/fetchclimate-client/internal/config"
	"github.com/couchcryptid/fetchclimate-client/internal/domain"
	"github.com/couchcryptid/fetchclimate-client/internal/observability"
)

// messageWriter is the subset of *kafkago.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces fetched climate results to a Kafka topic.
// It implements processing.Publisher.
type Publisher struct {
	writer  messageWriter
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock
}

// NewPublisher creates a Kafka producer for the configured results topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaResultsTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return newPublisher(w, logger, metrics, clockwork.NewRealClock())
}

func newPublisher(w messageWriter, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Publisher {
	return &Publisher{writer: w, logger: logger, metrics: metrics, clock: clock}
}

// Publish writes one message for res, keyed by its request hash so every
// answer to the same request lands on the same partition.
func (p *Publisher) Publish(ctx context.Context, requestHash string, res domain.Result) error {
	msg, err := serializeToMessage(requestHash, res, p.clock.Now())
	if err != nil {
		p.metrics.PublishErrors.Inc()
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.metrics.PublishErrors.Inc()
		return fmt.Errorf("write result message: %w", err)
	}
	p.metrics.ResultsPublished.Inc()
	p.logger.Debug("result published", "request_hash", requestHash, "cells", len(res.Values))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// ResultMessage is the JSON value of a published result.
type ResultMessage struct {
	RequestHash string              `json:"request_hash"`
	Parameter   string              `json:"parameter"`
	NativeUnit  string              `json:"native_unit"`
	DataSource  string              `json:"data_source"`
	Variation   string              `json:"variation"`
	Status      string              `json:"status"`
	Message     string              `json:"message,omitempty"`
	FetchedAt   time.Time           `json:"fetched_at"`
	Cells       []ResultMessageCell `json:"cells"`
}

// ResultMessageCell pairs a request cell with its computed value.
type ResultMessageCell struct {
	domain.Cell
	domain.ParameterValue
}

// serializeToMessage marshals a Result into a Kafka message.
func serializeToMessage(requestHash string, res domain.Result, now time.Time) (kafkago.Message, error) {
	if len(res.Values) != len(res.Request.Cells) {
		return kafkago.Message{}, fmt.Errorf("serialize result %s: %d values for %d cells",
			requestHash, len(res.Values), len(res.Request.Cells))
	}
	body := ResultMessage{
		RequestHash: requestHash,
		Parameter:   res.Request.Parameter.ID,
		NativeUnit:  res.Request.Parameter.NativeUnit,
		DataSource:  res.Request.ProvenanceHint(),
		Variation:   string(res.Request.Options.VariationType),
		Status:      string(res.Status),
		Message:     res.Message,
		FetchedAt:   now.UTC(),
		Cells:       make([]ResultMessageCell, len(res.Values)),
	}
	for i, v := range res.Values {
		body.Cells[i] = ResultMessageCell{Cell: res.Request.Cells[i], ParameterValue: v}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize result %s: %w", requestHash, err)
	}
	return kafkago.Message{
		Key:   []byte(requestHash),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "parameter", Value: []byte(res.Request.Parameter.ID)},
			{Key: "fetched_at", Value: []byte(now.UTC().Format(time.RFC3339))},
		},
	}, nil
}
