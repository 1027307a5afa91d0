//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/couchcryptid/precip-analytics/internal/adapter/kafka"
	"github.com/couchcryptid/precip-analytics/internal/config"
	"github.com/couchcryptid/precip-analytics/internal/domain"
	"github.com/couchcryptid/precip-analytics/internal/observability"
	"github.com/couchcryptid/precip-analytics/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSourceTopic = "test-observations"
	testSinkTopic   = "test-summaries"
)

var testBaseHour = time.Date(2024, time.April, 26, 0, 0, 0, 0, time.UTC)

func testAnalyzerOptions() pipeline.AnalyzerOptions {
	return pipeline.AnalyzerOptions{
		PeriodHours:    2,
		DelayHours:     0,
		ThresholdIn:    0.1,
		MinSeriesHours: 4,
		MaxSeriesHours: 24,
	}
}

// observationMessage builds a source-topic message for one hourly reading.
func observationMessage(t *testing.T, station string, hourOffset int, depth float64) kafkago.Message {
	t.Helper()
	ts := testBaseHour.Add(time.Duration(hourOffset) * time.Hour)
	payload, err := json.Marshal(domain.GaugeReading{StationID: station, Timestamp: ts, PrecipIn: &depth})
	require.NoError(t, err)
	return kafkago.Message{Key: []byte(station), Value: payload, Time: ts}
}

// summaryMessage holds a deserialized message read from the sink topic.
type summaryMessage struct {
	Summary domain.StationEventSummary
	Key     string
	Headers map[string]string
}

// readSummary reads a single message from the sink consumer and deserializes it.
func readSummary(ctx context.Context, t *testing.T, consumer *kafkago.Reader) summaryMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var s domain.StationEventSummary
	require.NoError(t, json.Unmarshal(msg.Value, &s), "unmarshal sink message")

	return summaryMessage{Summary: s, Key: string(msg.Key), Headers: headers}
}

func sinkConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// TestKafkaReaderWriter verifies the adapter layer: kafka.Reader (extractor)
// and kafka.Writer (loader) correctly round-trip messages through Kafka.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("test-reader-%d", time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testSourceTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	msg := observationMessage(t, "KAUS-12", 0, 0.35)
	require.NoError(t, producer.WriteMessages(ctx, msg))

	// Extract via kafka.Reader.
	// Retry because the consumer group may need time to rebalance before
	// partitions are assigned and messages become available.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	var batch []domain.RawObservation
	for {
		var err error
		batch, err = reader.ExtractBatch(ctx, 1)
		require.NoError(t, err)
		if len(batch) > 0 {
			break
		}
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for message from source topic")
		}
	}
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte("KAUS-12"), raw.Key)
	assert.Equal(t, msg.Value, raw.Value)
	assert.Equal(t, testSourceTopic, raw.Topic)
	require.NotNil(t, raw.Commit, "commit callback should be set")
	require.NoError(t, raw.Commit(ctx))

	reading, err := domain.ParseRawObservation(raw)
	require.NoError(t, err)
	assert.Equal(t, "KAUS-12", reading.StationID)

	// Load a serialized summary via kafka.Writer.
	summary := domain.StationEventSummary{
		StationID: "KAUS-12",
		EventSummary: domain.EventSummary{
			EventID:       2,
			EventType:     domain.Wet,
			StartTime:     testBaseHour.Add(2 * time.Hour),
			EndTime:       testBaseHour.Add(2 * time.Hour),
			DurationHours: 1,
			TotalDepth:    0.35,
			PeakIntensity: 0.35,
			MeanIntensity: 0.35,
		},
	}
	out, err := domain.SerializeSummary(summary)
	require.NoError(t, err)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })
	require.NoError(t, writer.LoadBatch(ctx, []domain.OutputEvent{out}))

	// Read from the sink topic and verify key, headers, and value.
	sm := readSummary(ctx, t, sinkConsumer(t, broker))
	assert.Equal(t, domain.EventKey("KAUS-12", summary.EventSummary), sm.Key)
	assert.Equal(t, "wet", sm.Headers["event_type"])
	_, err = time.Parse(time.RFC3339, sm.Headers["computed_at"])
	assert.NoError(t, err, "computed_at should be valid RFC3339")
	assert.Equal(t, summary.EventSummary, sm.Summary.EventSummary)
}

// TestPipelineEndToEnd wires the full pipeline (Reader, StationAnalyzer,
// Writer) with real Kafka and verifies that closed events come out as
// summaries on the sink topic.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("test-pipeline-%d", time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}

	// Six contiguous hours: dry, dry, wet, dry, wet, dry. Every event except
	// the trailing dry run closes, so four summaries reach the sink.
	depths := []float64{0, 0, 1.2, 0, 0.6, 0}
	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testSourceTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	msgs := make([]kafkago.Message, 0, len(depths))
	for h, d := range depths {
		msgs = append(msgs, observationMessage(t, "KAUS-12", h, d))
	}
	require.NoError(t, producer.WriteMessages(ctx, msgs...))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	analyzer := pipeline.NewStationAnalyzer(testAnalyzerOptions(), discardLogger(), metrics)
	p := pipeline.New(reader, analyzer, writer, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := sinkConsumer(t, broker)
	received := make([]summaryMessage, 0, 4)
	for len(received) < 4 {
		received = append(received, readSummary(ctx, t, consumer))
	}

	pipelineCancel()
	require.NoError(t, <-errCh)

	typeCounts := map[domain.Weather]int{}
	for _, sm := range received {
		typeCounts[sm.Summary.EventType]++
		assert.Equal(t, "KAUS-12", sm.Summary.StationID)
		assert.Equal(t, string(sm.Summary.EventType), sm.Headers["event_type"])
		assert.Equal(t, domain.EventKey("KAUS-12", sm.Summary.EventSummary), sm.Key)
	}
	assert.Equal(t, 2, typeCounts[domain.Dry], "dry count")
	assert.Equal(t, 2, typeCounts[domain.Wet], "wet count")

	// Spot-check the first wet event: hour 2, 1.2 inches.
	var found bool
	for _, sm := range received {
		if sm.Summary.EventType != domain.Wet || sm.Summary.StartTime != testBaseHour.Add(2*time.Hour) {
			continue
		}
		found = true
		assert.Equal(t, 1, sm.Summary.DurationHours)
		assert.InDelta(t, 1.2, sm.Summary.TotalDepth, 1e-9)
		assert.InDelta(t, 1.2, sm.Summary.PeakIntensity, 1e-9)
		require.NotNil(t, sm.Summary.AntecedentIn, "wet event at hour 2 has two prior hours of history")
		assert.InDelta(t, 0, *sm.Summary.AntecedentIn, 1e-9)
	}
	assert.True(t, found, "expected the hour-2 wet event summary on the sink topic")
}

// TestPipelinePoisonPill verifies that an invalid message is skipped and the
// pipeline continues processing valid observations behind it.
func TestPipelinePoisonPill(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("test-poison-%d", time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testSourceTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	// A poison pill first, then enough valid hours to close one dry event.
	msgs := []kafkago.Message{
		{Key: []byte("bad"), Value: []byte("not-json{{{"), Time: testBaseHour},
	}
	for h, d := range []float64{0, 0, 1.2, 0} {
		msgs = append(msgs, observationMessage(t, "KAUS-12", h, d))
	}
	require.NoError(t, producer.WriteMessages(ctx, msgs...))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	analyzer := pipeline.NewStationAnalyzer(testAnalyzerOptions(), discardLogger(), metrics)
	p := pipeline.New(reader, analyzer, writer, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := sinkConsumer(t, broker)

	// The opening dry run and the wet hour close when hour 3 arrives.
	first := readSummary(ctx, t, consumer)
	assert.Equal(t, domain.Dry, first.Summary.EventType)
	assert.Equal(t, testBaseHour, first.Summary.StartTime)
	assert.Equal(t, 2, first.Summary.DurationHours)

	second := readSummary(ctx, t, consumer)
	assert.Equal(t, domain.Wet, second.Summary.EventType)
	assert.InDelta(t, 1.2, second.Summary.TotalDepth, 1e-9)

	// No third message: the poison pill produced nothing.
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no further messages on sink topic")

	pipelineCancel()
	require.NoError(t, <-errCh)
}
