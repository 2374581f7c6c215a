//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/quake-data-etl/internal/adapter/fetch"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/htmldoc"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/memory"
	"github.com/couchcryptid/quake-data-etl/internal/config"
	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/extract"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
	"github.com/couchcryptid/quake-data-etl/internal/pipeline"
)

const testTopic = "test-earthquakes"

const sourcePage = `<html><body>
<table>
  <tr><th>Fecha y hora</th><th>Magnitud</th><th>Profundidad</th><th>Coordenadas</th><th>Referencia</th></tr>
  <tr><td>15/03/2024 10:30:00</td><td>M 4.5</td><td>60 km</td><td>12.5°S, 76.8°W</td><td>45 km al SO de Lima</td></tr>
  <tr><td>16/03/2024 11:00:00</td><td></td><td>70 km</td><td>Arequipa</td><td></td></tr>
</table>
</body></html>`

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("quake-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
		ConfigEntries: []kafkago.ConfigEntry{
			{ConfigName: "cleanup.policy", ConfigValue: "compact"},
		},
	}))
}

// TestScrapeAndPublish runs a scrape against a local page and checks that the
// saved record is published to Kafka keyed by its ID.
func TestScrapeAndPublish(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(sourcePage))
	}))
	defer srv.Close()

	metrics := observability.NewMetricsForTesting()
	logger := observability.NewLogger(&config.Config{LogLevel: "debug", LogFormat: "text"})
	store := memory.New()
	writer := kafka.NewWriter([]string{broker}, testTopic)
	publishing := kafka.NewPublishingStore(store, writer, logger, metrics)
	defer publishing.Close()

	scraper := pipeline.NewScraper(fetch.NewClient(nil), htmldoc.Parse, extract.DefaultChain(10), publishing,
		pipeline.Options{URL: srv.URL, Timeout: 10 * time.Second}, logger, metrics)

	res, err := scraper.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Saved)
	assert.Equal(t, 1, store.Len())

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := reader.ReadMessage(readCtx)
	require.NoError(t, err, "read published record")

	var rec domain.EarthquakeRecord
	require.NoError(t, json.Unmarshal(msg.Value, &rec))
	assert.Equal(t, rec.ID, string(msg.Key))
	assert.Equal(t, "15/03/2024 10:30:00", rec.OccurredAtRaw)
	assert.Equal(t, "45 km al SO de Lima", rec.LocationText)
	assert.InDelta(t, -12.5, rec.Latitude, 1e-9)

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "4.5", headers["magnitude"])
	assert.NotEmpty(t, headers["scraped_at"])
}
