package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 100, cfg.Generator.NumEvents)
	assert.Equal(t, 30, cfg.Generator.HistoricalDays)
	assert.Equal(t, "data/raw/mmp_events.jsonl", cfg.Generator.Output)
	assert.Equal(t, "mobile-measurement-data", cfg.Storage.Bucket)
	assert.Equal(t, "raw", cfg.Storage.Prefix)
	assert.Equal(t, 3, cfg.Storage.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Storage.RetryBase)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"localhost:9092"}, cfg.EventProducer.Brokers)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "mmpgen.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
log_level: DEBUG
generator:
  num_events: 500
  historical_days: 7
storage:
  bucket: from-file
  max_attempts: 5
  retry_base: 250ms
`), 0o600))

	t.Setenv("MMPGEN_GENERATOR_OUTPUT", "out/events.jsonl")

	cfg, err := Load(file)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, 500, cfg.Generator.NumEvents)
	assert.Equal(t, 7, cfg.Generator.HistoricalDays)
	assert.Equal(t, "out/events.jsonl", cfg.Generator.Output)
	assert.Equal(t, "from-file", cfg.Storage.Bucket)
	assert.Equal(t, 5, cfg.Storage.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Storage.RetryBase)
}

func TestLoad_BucketFallbackEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("GCS_BUCKET", "legacy-bucket")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "legacy-bucket", cfg.Storage.Bucket)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	chdir(t, t.TempDir())
	base, err := Load("")
	require.NoError(t, err)

	cases := map[string]struct {
		mutate  func(*Config)
		wantErr string
	}{
		"ok": {
			mutate: func(*Config) {},
		},
		"empty bucket allowed": {
			mutate: func(c *Config) { c.Storage.Bucket = "" },
		},
		"negative days": {
			mutate:  func(c *Config) { c.Generator.HistoricalDays = -1 },
			wantErr: "HistoricalDays",
		},
		"days past cap": {
			mutate:  func(c *Config) { c.Generator.HistoricalDays = 200000 },
			wantErr: "HistoricalDays",
		},
		"negative count": {
			mutate:  func(c *Config) { c.Generator.NumEvents = -5 },
			wantErr: "NumEvents",
		},
		"bad bucket": {
			mutate:  func(c *Config) { c.Storage.Bucket = "Bad Bucket!" },
			wantErr: "Bucket",
		},
		"bad log level": {
			mutate:  func(c *Config) { c.LogLevel = "LOUD" },
			wantErr: "LogLevel",
		},
		"bad log format": {
			mutate:  func(c *Config) { c.LogFormat = "xml" },
			wantErr: "LogFormat",
		},
		"no output": {
			mutate:  func(c *Config) { c.Generator.Output = "" },
			wantErr: "Output",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
