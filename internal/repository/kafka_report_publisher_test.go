package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPredictor/internal/domain/models"
)

type recordingProducer struct {
	topic  string
	key    []byte
	value  interface{}
	err    error
	closed bool
}

func (p *recordingProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	p.topic, p.key, p.value = topic, key, value
	return p.err
}

func (p *recordingProducer) Close() error {
	p.closed = true
	return nil
}

func TestKafkaReportPublisherKeysBySymbol(t *testing.T) {
	prod := &recordingProducer{}
	pub := NewKafkaReportPublisher(prod, "stockpred.backtest.reports")
	rec := &models.RunRecord{ID: "r1", Symbol: "AAPL"}

	require.NoError(t, pub.PublishReport(context.Background(), rec))
	assert.Equal(t, "stockpred.backtest.reports", prod.topic)
	assert.Equal(t, []byte("AAPL"), prod.key)
	assert.Same(t, rec, prod.value)

	require.NoError(t, pub.Close())
	assert.True(t, prod.closed)
}

func TestKafkaReportPublisherErrors(t *testing.T) {
	boom := errors.New("leader not available")
	pub := NewKafkaReportPublisher(&recordingProducer{err: boom}, "t")

	err := pub.PublishReport(context.Background(), &models.RunRecord{ID: "r2", Symbol: "AAPL"})
	assert.ErrorIs(t, err, boom)
	assert.Error(t, pub.PublishReport(context.Background(), nil))
}
