package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chandemux/chandemux/decode"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, decode.DefaultDecimationRatio, cfg.Decode.DecimationRatio)
	assert.Equal(t, 160, cfg.Decode.WindowLength)
	assert.Equal(t, SourceFile, cfg.Source.Kind)
	assert.Equal(t, DefaultChunkSize, cfg.Source.ChunkSize)
}

func TestLoad(t *testing.T) {
	name := filepath.Join(t.TempDir(), "chandemux.yaml")
	require.NoError(t, os.WriteFile(name, []byte(`
decode:
  threshold_window: 32
  threshold_policy: chunk
  decision: mean
source:
  kind: rtltcp
  server: 10.0.0.2:1234
  center_freq: 912600155
  duration: 1h5m
  raw_file: capture.bin
  progress: 30s
sink:
  frame_log: "-"
  format: json
log:
  level: debug
`), 0644))

	cfg, err := Load(name)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 32, cfg.Decode.ThresholdWindow)
	assert.Equal(t, decode.PolicyChunk, cfg.Decode.ThresholdPolicy)
	assert.Equal(t, decode.DecideMean, cfg.Decode.Decision)
	assert.Equal(t, 320, cfg.Decode.WindowLength)
	assert.Equal(t, uint32(912600155), cfg.Source.CenterFreq)
	assert.Equal(t, time.Hour+5*time.Minute, cfg.Source.Duration)
	assert.Equal(t, "capture.bin", cfg.Source.RawFile)
	assert.Equal(t, 30*time.Second, cfg.Source.Progress)
	assert.Equal(t, "json", cfg.Sink.Format)

	// Unset keys keep their defaults.
	assert.Equal(t, decode.DefaultDecimationRatio, cfg.Decode.DecimationRatio)
	assert.Equal(t, decode.DefaultMarker, cfg.Decode.Marker)
	assert.Equal(t, uint32(2400000), cfg.Source.SampleRate)
	assert.True(t, cfg.Sink.Digest)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, os.IsNotExist(errors.Cause(err)))
}

func TestDecodeUnknownField(t *testing.T) {
	cfg := Default()
	err := Decode(strings.NewReader("decode:\n  window_length: 4\n"), &cfg)
	assert.Equal(t, decode.ErrConfig, errors.Cause(err))
}

func TestDecodeEmpty(t *testing.T) {
	cfg := Default()
	require.NoError(t, Decode(strings.NewReader(""), &cfg))
	assert.Equal(t, Default(), cfg)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		modify func(*File)
	}{
		{"Decode", func(f *File) { f.Decode.FrameBits = 120 }},
		{"SourceKind", func(f *File) { f.Source.Kind = "audio" }},
		{"EmptyFile", func(f *File) { f.Source.File = "" }},
		{"EmptyServer", func(f *File) { f.Source.Kind = SourceRTLTCP; f.Source.Server = "" }},
		{"ChunkSize", func(f *File) { f.Source.ChunkSize = 0 }},
		{"QueueDepth", func(f *File) { f.Source.QueueDepth = -1 }},
		{"Duration", func(f *File) { f.Source.Duration = -time.Second }},
		{"Progress", func(f *File) { f.Source.Progress = -time.Second }},
		{"Format", func(f *File) { f.Sink.FrameLog = "-"; f.Sink.Format = "yaml" }},
		{"LogLevel", func(f *File) { f.Log.Level = "loud" }},
		{"LogFormat", func(f *File) { f.Log.Format = "logfmt" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.modify(&cfg)
			assert.Equal(t, decode.ErrConfig, errors.Cause(cfg.Validate()))
		})
	}
}

func TestLogApply(t *testing.T) {
	logger := logrus.New()

	require.NoError(t, Log{Level: "debug", Format: "json"}.Apply(logger))
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	require.NoError(t, Log{Level: "warn", Format: "text"}.Apply(logger))
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}
