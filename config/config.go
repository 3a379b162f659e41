// Package config loads receiver settings from a YAML file. Command-line flags
// and environment variables are applied on top by the command.
package config

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/chandemux/chandemux/decode"
	"github.com/chandemux/chandemux/sink"
)

const (
	SourceFile   = "file"
	SourceRTLTCP = "rtltcp"

	// DefaultChunkSize is 16 MiB of int16 samples.
	DefaultChunkSize  = 8388608
	DefaultQueueDepth = 2
	DefaultProgress   = 10 * time.Second
)

type File struct {
	Decode decode.Config `yaml:"decode"`
	Source Source        `yaml:"source"`
	Sink   Sink          `yaml:"sink"`
	Log    Log           `yaml:"log"`
}

type Source struct {
	Kind string `yaml:"kind"`

	// Sample file for kind "file", "-" reads stdin.
	File string `yaml:"file"`

	// rtl_tcp settings for kind "rtltcp".
	Server     string `yaml:"server"`
	CenterFreq uint32 `yaml:"center_freq"`
	SampleRate uint32 `yaml:"sample_rate"`
	Gain       uint32 `yaml:"gain"`

	ChunkSize  int           `yaml:"chunk_size"`
	QueueDepth int           `yaml:"queue_depth"`
	Duration   time.Duration `yaml:"duration"` // 0 runs until end of stream

	// Every acquired sample is also written to RawFile, empty to disable.
	RawFile string `yaml:"raw_file"`

	// Transfer progress is logged every Progress, 0 to disable.
	Progress time.Duration `yaml:"progress"`
}

type Sink struct {
	// Lane files go under OutDir in a directory named by DirPattern. An
	// empty OutDir disables them.
	OutDir     string `yaml:"out_dir"`
	DirPattern string `yaml:"dir_pattern"`

	// Frame records are written to FrameLog, "-" for stdout, in Format. An
	// empty FrameLog disables them.
	FrameLog string `yaml:"frame_log"`
	Format   string `yaml:"format"`

	Digest bool `yaml:"digest"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

func Default() File {
	return File{
		Decode: decode.NewConfig(),
		Source: Source{
			Kind:       SourceFile,
			File:       "-",
			Server:     "127.0.0.1:1234",
			CenterFreq: 100000000,
			SampleRate: 2400000,
			ChunkSize:  DefaultChunkSize,
			QueueDepth: DefaultQueueDepth,
			Progress:   DefaultProgress,
		},
		Sink: Sink{
			OutDir:     ".",
			DirPattern: sink.DefaultDirPattern,
			Format:     "plain",
			Digest:     true,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the named file over the defaults. Keys the file doesn't set keep
// their default value; unknown keys are an error.
func Load(name string) (File, error) {
	cfg := Default()

	f, err := os.Open(name)
	if err != nil {
		return cfg, errors.Wrap(err, "open config")
	}
	defer f.Close()

	if err := Decode(f, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "config %s", name)
	}

	return cfg, nil
}

// Decode reads YAML from r into cfg. An empty document leaves cfg unchanged.
func Decode(r io.Reader, cfg *File) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return errors.Wrap(decode.ErrConfig, err.Error())
	}
	return nil
}

// Validate checks every section, filling in the decoder's derived fields.
// Every returned error has decode.ErrConfig as its cause.
func (cfg *File) Validate() error {
	if err := cfg.Decode.Validate(); err != nil {
		return err
	}

	switch cfg.Source.Kind {
	case SourceFile:
		if cfg.Source.File == "" {
			return errors.Wrap(decode.ErrConfig, "sample file is empty")
		}
	case SourceRTLTCP:
		if cfg.Source.Server == "" {
			return errors.Wrap(decode.ErrConfig, "rtl_tcp server is empty")
		}
	default:
		return errors.Wrapf(decode.ErrConfig, "unknown source: %q", cfg.Source.Kind)
	}

	if cfg.Source.ChunkSize <= 0 {
		return errors.Wrapf(decode.ErrConfig, "chunk size must be positive: %d", cfg.Source.ChunkSize)
	}
	if cfg.Source.QueueDepth <= 0 {
		return errors.Wrapf(decode.ErrConfig, "queue depth must be positive: %d", cfg.Source.QueueDepth)
	}
	if cfg.Source.Duration < 0 {
		return errors.Wrapf(decode.ErrConfig, "negative duration: %s", cfg.Source.Duration)
	}
	if cfg.Source.Progress < 0 {
		return errors.Wrapf(decode.ErrConfig, "negative progress interval: %s", cfg.Source.Progress)
	}

	if cfg.Sink.FrameLog != "" {
		if _, err := sink.NewEncoder(cfg.Sink.Format, io.Discard, cfg.Decode); err != nil {
			return errors.Wrap(decode.ErrConfig, err.Error())
		}
	}

	if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		return errors.Wrap(decode.ErrConfig, err.Error())
	}
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		return errors.Wrapf(decode.ErrConfig, "unknown log format: %q", cfg.Log.Format)
	}

	return nil
}

// Apply configures logger's level and formatter.
func (l Log) Apply(logger *logrus.Logger) error {
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return errors.Wrap(decode.ErrConfig, err.Error())
	}
	logger.SetLevel(level)

	if l.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return nil
}
