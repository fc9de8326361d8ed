package repository

import (
	"context"
	"fmt"

	"StockPredictor/internal/domain/models"
	domrepo "StockPredictor/internal/domain/repository"
)

// MessagePublisher is satisfied by *kafka.Producer.
type MessagePublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaReportPublisher publishes finished backtest runs, keyed by symbol.
type KafkaReportPublisher struct {
	producer MessagePublisher
	topic    string
}

var _ domrepo.ReportPublisher = (*KafkaReportPublisher)(nil)

// NewKafkaReportPublisher creates a publisher writing to topic.
func NewKafkaReportPublisher(producer MessagePublisher, topic string) *KafkaReportPublisher {
	return &KafkaReportPublisher{producer: producer, topic: topic}
}

func (p *KafkaReportPublisher) PublishReport(ctx context.Context, rec *models.RunRecord) error {
	if rec == nil {
		return fmt.Errorf("publish report: nil record")
	}
	if err := p.producer.Publish(ctx, p.topic, []byte(rec.Symbol), rec); err != nil {
		return fmt.Errorf("publish report %s: %w", rec.ID, err)
	}
	return nil
}

func (p *KafkaReportPublisher) Close() error {
	return p.producer.Close()
}

// NoopReportPublisher is used when Kafka is disabled.
type NoopReportPublisher struct{}

var _ domrepo.ReportPublisher = NoopReportPublisher{}

func (NoopReportPublisher) PublishReport(context.Context, *models.RunRecord) error { return nil }
func (NoopReportPublisher) Close() error                                           { return nil }
