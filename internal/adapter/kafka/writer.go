package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/covid-mortality-etl/internal/config"
	"github.com/couchcryptid/covid-mortality-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Record types, carried in the record_type header and field.
const (
	RecordSummary    = "summary"
	RecordTimeline   = "timeline"
	RecordCFR        = "cfr"
	RecordChoropleth = "choropleth"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes report records to a Kafka topic.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSinkTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "kafka" }

// Publish writes one summary record, one record per timeline day and one per
// region with a defined CFR, in a single WriteMessages call.
func (w *Writer) Publish(ctx context.Context, report domain.Report) error {
	msgs, err := buildMessages(report)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages: %w", len(msgs), err)
	}
	w.logger.Debug("report records written", "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

type summaryRecord struct {
	RecordType  string          `json:"record_type"`
	GeneratedAt time.Time       `json:"generated_at"`
	Params      domain.Params   `json:"params"`
	Stats       domain.RunStats `json:"stats"`
	Projected   bool            `json:"projected"`
	FitError    string          `json:"fit_error,omitempty"`
}

type timelineRecord struct {
	RecordType string  `json:"record_type"`
	Date       string  `json:"date"`
	Deaths     float64 `json:"deaths"`
	Source     string  `json:"source"`
}

type cfrRecord struct {
	RecordType string  `json:"record_type"`
	Region     string  `json:"region"`
	MaxDeaths  int64   `json:"max_deaths"`
	MaxCases   int64   `json:"max_cases"`
	CFR        float64 `json:"cfr"`
}

// choroplethRecord is one map region after exclusions. Boundary is omitted
// when none was resolved.
type choroplethRecord struct {
	RecordType string           `json:"record_type"`
	Region     string           `json:"region"`
	CFR        float64          `json:"cfr"`
	Boundary   *domain.Boundary `json:"boundary,omitempty"`
}

func buildMessages(r domain.Report) ([]kafkago.Message, error) {
	timeline := r.Timeline()
	msgs := make([]kafkago.Message, 0, 1+len(timeline)+len(r.CFR.Defined)+len(r.Choropleth))

	msg, err := serializeToMessage("summary", RecordSummary, r.GeneratedAt, summaryRecord{
		RecordType:  RecordSummary,
		GeneratedAt: r.GeneratedAt,
		Params:      r.Params,
		Stats:       r.Stats,
		Projected:   r.Projection != nil,
		FitError:    r.FitError,
	})
	if err != nil {
		return nil, err
	}
	msgs = append(msgs, msg)

	for _, p := range timeline {
		date := p.Date.Format(time.DateOnly)
		msg, err := serializeToMessage("national/"+date, RecordTimeline, r.GeneratedAt, timelineRecord{
			RecordType: RecordTimeline,
			Date:       date,
			Deaths:     p.Deaths,
			Source:     p.Source,
		})
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}

	for _, c := range r.CFR.Defined {
		msg, err := serializeToMessage("cfr/"+c.Region, RecordCFR, r.GeneratedAt, cfrRecord{
			RecordType: RecordCFR,
			Region:     c.Region,
			MaxDeaths:  c.MaxDeaths,
			MaxCases:   c.MaxCases,
			CFR:        c.CFR,
		})
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}

	for _, e := range r.Choropleth {
		msg, err := serializeToMessage("choropleth/"+e.Region, RecordChoropleth, r.GeneratedAt, choroplethRecord{
			RecordType: RecordChoropleth,
			Region:     e.Region,
			CFR:        e.CFR,
			Boundary:   e.Boundary,
		})
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// serializeToMessage marshals one record into a Kafka message.
func serializeToMessage(key, recordType string, generatedAt time.Time, record any) (kafkago.Message, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s record: %w", recordType, err)
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "record_type", Value: []byte(recordType)},
			{Key: "generated_at", Value: []byte(generatedAt.Format(time.RFC3339))},
		},
	}, nil
}
