package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leshachaplin/mmpgen/internal/config"
	"github.com/leshachaplin/mmpgen/internal/service"
	"github.com/leshachaplin/mmpgen/internal/storage/gcs"
	"github.com/leshachaplin/mmpgen/internal/storage/jsonl"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		LogLevel:  string(ERROR),
		LogFormat: "json",
		Generator: config.Generator{
			NumEvents:      40,
			HistoricalDays: 5,
			Output:         filepath.Join(t.TempDir(), "raw", "mmp_events.jsonl"),
			Seed:           99,
			LocalOnly:      true,
		},
		Server: config.Server{Addr: "127.0.0.1:0"},
	}
}

func newTestApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	a, err := New(func() (config.Config, error) { return cfg, nil })
	require.NoError(t, err)
	t.Cleanup(a.Stop)
	return a
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Generator.HistoricalDays = -1

	_, err := New(func() (config.Config, error) { return cfg, nil })
	require.ErrorIs(t, err, config.ErrInvalid)
}

func TestApp_GenerateLocalOnlyThenValidate(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	res, err := a.Generate()
	require.NoError(t, err)
	assert.Equal(t, 40, res.Report.Valid)
	assert.Empty(t, res.URI)

	records, err := jsonl.ReadFile(res.BackupPath)
	require.NoError(t, err)
	assert.Len(t, records, 40)

	checked, err := a.Validate(res.BackupPath)
	require.NoError(t, err)
	assert.Equal(t, 40, checked.Valid)
	assert.Equal(t, res.Summary, *checked.Summary)
}

func TestApp_GenerateSeeded(t *testing.T) {
	cfg := testConfig(t)

	first, err := newTestApp(t, cfg).Generate()
	require.NoError(t, err)
	second, err := newTestApp(t, cfg).Generate()
	require.NoError(t, err)

	for i := range first.Events {
		assert.Equal(t, first.Events[i].EventType, second.Events[i].EventType)
		assert.Equal(t, first.Events[i].CostUSD, second.Events[i].CostUSD)
	}
}

func TestApp_GenerateNoBucket(t *testing.T) {
	cfg := testConfig(t)
	cfg.Generator.LocalOnly = false

	_, err := newTestApp(t, cfg).Generate()
	require.ErrorIs(t, err, gcs.ErrNoBucket)
}

func TestApp_GenerateUpload(t *testing.T) {
	var uploaded string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			uploaded = r.URL.Query().Get("name")
			_, _ = w.Write([]byte(`{"name":"` + uploaded + `","size":"123"}`))
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"name":"` + uploaded + `","size":"123"}`))
		}
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.Generator.LocalOnly = false
	cfg.Storage = gcs.Config{
		Bucket:      "test-bucket",
		Prefix:      "raw",
		Endpoint:    srv.URL,
		MaxAttempts: 1,
		RetryBase:   time.Millisecond,
	}

	res, err := newTestApp(t, cfg).Generate()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uploaded, "raw/mmp_events_"))
	assert.Equal(t, "gs://test-bucket/"+uploaded, res.URI)
	assert.Equal(t, int64(123), res.Size)
}

func TestApp_ValidateMissingFile(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	_, err := a.Validate(filepath.Join(t.TempDir(), "missing.jsonl"))
	require.ErrorIs(t, err, jsonl.ErrNotFound)
}

func TestApp_ValidateInvalidFile(t *testing.T) {
	cfg := testConfig(t)
	a := newTestApp(t, cfg)

	res, err := a.Generate()
	require.NoError(t, err)

	broken := filepath.Join(t.TempDir(), "broken.jsonl")
	events := res.Events
	events[3].Platform = "Windows"
	require.NoError(t, jsonl.WriteFile(broken, events))

	checked, err := a.Validate(broken)
	require.ErrorIs(t, err, service.ErrInvalidBatch)
	assert.Equal(t, 1, checked.Invalid)
	assert.Contains(t, checked.Errors[0], "Event 3: Invalid platform: Windows")
}

func TestApp_DeadLetterOptionsDisabled(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	var closers []func() error
	opts, err := a.deadLetterOptions(&closers)
	require.NoError(t, err)
	assert.Empty(t, opts)
	assert.Empty(t, closers)
}

func TestApp_GenerateStreamNoBroker(t *testing.T) {
	cfg := testConfig(t)
	cfg.Generator.Stream = true
	cfg.EventProducer.Brokers = []string{"127.0.0.1:1"}
	cfg.EventWorker.DeadLetterTopic = "mmp-events-dlq"

	a := newTestApp(t, cfg)
	ctx, cancel := context.WithTimeout(a.ctx, 2*time.Second)
	defer cancel()
	a.ctx = ctx

	_, err := a.Generate()
	require.ErrorContains(t, err, "could not setup event producer")
}
