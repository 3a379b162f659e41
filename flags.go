// CHANDEMUX - A streaming demodulator and channel demultiplexer for sampled data.
// Copyright (C) 2015 Douglas Hall
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/bemasher/rtltcp/si"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/chandemux/chandemux/config"
	"github.com/chandemux/chandemux/decode"
	"github.com/chandemux/chandemux/sink"
)

// Flags holds command-line values. Only flags set on the command line or
// through the environment override the config file.
type Flags struct {
	fs *flag.FlagSet

	ConfigFile string
	Version    bool

	values     config.File
	centerFreq si.ScientificNotation
	sampleRate si.ScientificNotation
}

// sciValue lets rtltcp's frequency notation (912.6M, 2.4M) be used as a flag.
type sciValue struct {
	*si.ScientificNotation
}

func (sciValue) Type() string {
	return "float"
}

// Flags not listed here are grouped as rtl_tcp specific in the usage message.
var chandemuxFlags = map[string]bool{
	"config":          true,
	"source":          true,
	"samplefile":      true,
	"decimation":      true,
	"thresholdwindow": true,
	"thresholdpolicy": true,
	"decision":        true,
	"marker":          true,
	"validation":      true,
	"framebits":       true,
	"channels":        true,
	"lanes":           true,
	"chunksize":       true,
	"queuedepth":      true,
	"duration":        true,
	"rawfile":         true,
	"progress":        true,
	"outdir":          true,
	"dirpattern":      true,
	"framelog":        true,
	"format":          true,
	"digest":          true,
	"loglevel":        true,
	"logformat":       true,
	"version":         true,
}

func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs, values: config.Default()}
	v := &f.values

	fs.StringVar(&f.ConfigFile, "config", "", "YAML config file, flags and environment override its values")
	fs.BoolVar(&f.Version, "version", false, "display build date and commit hash")

	fs.StringVar(&v.Source.Kind, "source", v.Source.Kind, "sample source: file or rtltcp")
	fs.StringVar(&v.Source.File, "samplefile", v.Source.File, "little-endian int16 sample file, - for stdin")
	fs.IntVar(&v.Source.ChunkSize, "chunksize", v.Source.ChunkSize, "samples per chunk handed to the decoder")
	fs.IntVar(&v.Source.QueueDepth, "queuedepth", v.Source.QueueDepth, "chunks buffered between source and decoder")
	fs.DurationVar(&v.Source.Duration, "duration", v.Source.Duration, "time to run for, 0 for infinite, ex. 1h5m10s")
	fs.StringVar(&v.Source.RawFile, "rawfile", v.Source.RawFile, "raw signal dump file, empty to disable")
	fs.DurationVar(&v.Source.Progress, "progress", v.Source.Progress, "interval between progress reports, 0 to disable")

	fs.IntVar(&v.Decode.DecimationRatio, "decimation", v.Decode.DecimationRatio, "raw samples per bit")
	fs.IntVar(&v.Decode.ThresholdWindow, "thresholdwindow", v.Decode.ThresholdWindow, "decimated positions per threshold window")
	fs.StringVar((*string)(&v.Decode.ThresholdPolicy), "thresholdpolicy", string(v.Decode.ThresholdPolicy), "tail window policy: window or chunk")
	fs.StringVar((*string)(&v.Decode.Decision), "decision", string(v.Decode.Decision), "bit decision: first sample of each step or step mean")
	fs.StringVar(&v.Decode.Marker, "marker", v.Decode.Marker, "preamble marker bits")
	fs.StringVar(&v.Decode.Validation, "validation", v.Decode.Validation, "preamble validation bits")
	fs.IntVar(&v.Decode.FrameBits, "framebits", v.Decode.FrameBits, "bits per frame")
	fs.IntVar(&v.Decode.Channels, "channels", v.Decode.Channels, "channels per frame")
	fs.IntVar(&v.Decode.Lanes, "lanes", v.Decode.Lanes, "lanes per channel")

	fs.StringVar(&v.Sink.OutDir, "outdir", v.Sink.OutDir, "root directory for lane files, empty to disable")
	fs.StringVar(&v.Sink.DirPattern, "dirpattern", v.Sink.DirPattern, "strftime pattern naming each session's directory")
	fs.StringVar(&v.Sink.FrameLog, "framelog", v.Sink.FrameLog, "frame log file, - for stdout, empty to disable")
	fs.StringVar(&v.Sink.Format, "format", v.Sink.Format, "frame log format: "+strings.Join(sink.Formats(), ", "))
	fs.BoolVar(&v.Sink.Digest, "digest", v.Sink.Digest, "log a per-lane checksum when the session ends")

	fs.StringVar(&v.Log.Level, "loglevel", v.Log.Level, "log level: debug, info, warn or error")
	fs.StringVar(&v.Log.Format, "logformat", v.Log.Format, "log format: text or json")

	fs.StringVar(&v.Source.Server, "server", v.Source.Server, "address or hostname of rtl_tcp instance")
	f.centerFreq = si.ScientificNotation(v.Source.CenterFreq)
	fs.Var(sciValue{&f.centerFreq}, "centerfreq", "center frequency to receive on")
	f.sampleRate = si.ScientificNotation(v.Source.SampleRate)
	fs.Var(sciValue{&f.sampleRate}, "samplerate", "sample rate")
	fs.Uint32Var(&v.Source.Gain, "gain", v.Source.Gain, "tuner gain in tenths of a dB, 0 for automatic")

	printDefaults := func(inclusion bool) {
		fs.VisitAll(func(fl *flag.Flag) {
			if chandemuxFlags[fl.Name] != inclusion {
				return
			}
			fmt.Fprintf(os.Stderr, "  --%s=%s: %s\n", fl.Name, fl.DefValue, fl.Usage)
		})
	}

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", fs.Name())
		printDefaults(true)

		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "rtltcp specific:")
		printDefaults(false)
	}

	return f
}

// EnvOverride sets every flag with a matching CHANDEMUX_<FLAG> environment
// variable. Flags given on the command line take precedence when parsed
// afterwards.
func EnvOverride(fs *flag.FlagSet, log logrus.FieldLogger) {
	fs.VisitAll(func(f *flag.Flag) {
		envName := "CHANDEMUX_" + strings.ToUpper(f.Name)
		flagValue := os.Getenv(envName)
		if flagValue == "" {
			return
		}

		entry := log.WithFields(logrus.Fields{"env": envName, "flag": f.Name, "value": flagValue})
		if err := fs.Set(f.Name, flagValue); err != nil {
			entry.WithError(err).Warn("environment variable failed to override flag")
		} else {
			entry.Info("environment variable overrides flag")
		}
	})
}

// Config loads the config file if one was given, applies every flag that was
// set and validates the result.
func (f *Flags) Config() (config.File, error) {
	cfg := config.Default()
	if f.ConfigFile != "" {
		var err error
		if cfg, err = config.Load(f.ConfigFile); err != nil {
			return cfg, err
		}
	}

	v := f.values
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "source":
			cfg.Source.Kind = v.Source.Kind
		case "samplefile":
			cfg.Source.File = v.Source.File
		case "chunksize":
			cfg.Source.ChunkSize = v.Source.ChunkSize
		case "queuedepth":
			cfg.Source.QueueDepth = v.Source.QueueDepth
		case "duration":
			cfg.Source.Duration = v.Source.Duration
		case "rawfile":
			cfg.Source.RawFile = v.Source.RawFile
		case "progress":
			cfg.Source.Progress = v.Source.Progress
		case "server":
			cfg.Source.Server = v.Source.Server
		case "centerfreq":
			cfg.Source.CenterFreq = uint32(f.centerFreq)
		case "samplerate":
			cfg.Source.SampleRate = uint32(f.sampleRate)
		case "gain":
			cfg.Source.Gain = v.Source.Gain
		case "decimation":
			cfg.Decode.DecimationRatio = v.Decode.DecimationRatio
		case "thresholdwindow":
			cfg.Decode.ThresholdWindow = v.Decode.ThresholdWindow
		case "thresholdpolicy":
			cfg.Decode.ThresholdPolicy = decode.ThresholdPolicy(strings.ToLower(string(v.Decode.ThresholdPolicy)))
		case "decision":
			cfg.Decode.Decision = decode.DecisionRule(strings.ToLower(string(v.Decode.Decision)))
		case "marker":
			cfg.Decode.Marker = v.Decode.Marker
		case "validation":
			cfg.Decode.Validation = v.Decode.Validation
		case "framebits":
			cfg.Decode.FrameBits = v.Decode.FrameBits
		case "channels":
			cfg.Decode.Channels = v.Decode.Channels
		case "lanes":
			cfg.Decode.Lanes = v.Decode.Lanes
		case "outdir":
			cfg.Sink.OutDir = v.Sink.OutDir
		case "dirpattern":
			cfg.Sink.DirPattern = v.Sink.DirPattern
		case "framelog":
			cfg.Sink.FrameLog = v.Sink.FrameLog
		case "format":
			cfg.Sink.Format = strings.ToLower(v.Sink.Format)
		case "digest":
			cfg.Sink.Digest = v.Sink.Digest
		case "loglevel":
			cfg.Log.Level = v.Log.Level
		case "logformat":
			cfg.Log.Format = v.Log.Format
		}
	})

	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrap(err, "configuration")
	}

	return cfg, nil
}
