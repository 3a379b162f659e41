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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/chandemux/chandemux/config"
	"github.com/chandemux/chandemux/decode"
	"github.com/chandemux/chandemux/sink"
	"github.com/chandemux/chandemux/source"
)

type Receiver struct {
	cfg config.File
	log *logrus.Logger

	src  source.Source
	tee  *source.Tee
	pump *source.Pump
	d    *decode.Decoder

	sinks  sink.Multi
	lanes  *sink.LaneFiles
	digest *sink.Digest
}

// NewReceiver opens the configured source and sinks. cfg must be validated.
func NewReceiver(cfg config.File, log *logrus.Logger) (*Receiver, error) {
	var (
		src source.Source
		err error
	)

	switch cfg.Source.Kind {
	case config.SourceRTLTCP:
		src, err = source.DialRTLTCP(cfg.Source.Server, source.Tuning{
			CenterFreq: cfg.Source.CenterFreq,
			SampleRate: cfg.Source.SampleRate,
			Gain:       cfg.Source.Gain,
		}, log)
	default:
		src, err = source.OpenFile(cfg.Source.File)
	}
	if err != nil {
		return nil, err
	}

	rcvr, err := newReceiver(cfg, log, src, time.Now())
	if err != nil {
		src.Close()
		return nil, err
	}

	return rcvr, nil
}

func newReceiver(cfg config.File, log *logrus.Logger, src source.Source, start time.Time) (rcvr *Receiver, err error) {
	rcvr = &Receiver{cfg: cfg, log: log, src: src}

	// Close whatever was opened if a later sink fails.
	defer func() {
		if err != nil {
			rcvr.sinks.Close()
		}
	}()

	if cfg.Sink.OutDir != "" {
		rcvr.lanes, err = sink.NewLaneFiles(cfg.Sink.OutDir, cfg.Sink.DirPattern, start, cfg.Decode, log)
		if err != nil {
			return nil, err
		}
		rcvr.sinks = append(rcvr.sinks, rcvr.lanes)
	}

	if cfg.Sink.FrameLog != "" {
		out := os.Stdout
		if cfg.Sink.FrameLog != "-" {
			if out, err = os.Create(cfg.Sink.FrameLog); err != nil {
				return nil, errors.Wrap(err, "create frame log")
			}
		}

		fl, err := sink.NewFrameLog(out, cfg.Sink.Format, cfg.Decode)
		if err != nil {
			out.Close()
			return nil, err
		}
		if out == os.Stdout {
			rcvr.sinks = append(rcvr.sinks, stdoutLog{fl})
		} else {
			rcvr.sinks = append(rcvr.sinks, fl)
		}
	}

	if cfg.Sink.Digest {
		rcvr.digest = sink.NewDigest(cfg.Decode)
		rcvr.sinks = append(rcvr.sinks, rcvr.digest)
	}

	rcvr.d, err = decode.NewDecoder(cfg.Decode, rcvr.sinks)
	if err != nil {
		return nil, err
	}
	rcvr.d.SetLogger(log)
	rcvr.d.Cfg.Log(log)

	if cfg.Source.RawFile != "" {
		if rcvr.tee, err = source.CreateTee(src, cfg.Source.RawFile); err != nil {
			return nil, err
		}
		src = rcvr.tee
	}

	rcvr.pump = source.NewPump(src, cfg.Source.ChunkSize, cfg.Source.QueueDepth, log)
	rcvr.pump.SetProgress(cfg.Source.Progress)

	return rcvr, nil
}

// stdoutLog keeps Multi.Close from closing stdout.
type stdoutLog struct {
	*sink.FrameLog
}

func (stdoutLog) Close() error { return nil }

// Run decodes until the source is exhausted, ctx is done, the time limit is
// reached or a component fails. Interruption and the time limit are a clean
// stop: the decoder is closed and frames completed by its final window are
// still written.
func (rcvr *Receiver) Run(ctx context.Context) error {
	start := time.Now()

	if rcvr.cfg.Source.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rcvr.cfg.Source.Duration)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return rcvr.pump.Run(gctx)
	})
	g.Go(func() error {
		return rcvr.consume(gctx)
	})

	err := g.Wait()
	switch errors.Cause(err) {
	case context.DeadlineExceeded:
		rcvr.log.WithField("elapsed", time.Since(start)).Info("time limit reached")
		err = nil
	case context.Canceled:
		rcvr.log.WithField("elapsed", time.Since(start)).Info("interrupted")
		err = nil
	}
	if err != nil {
		return err
	}

	return rcvr.d.Close()
}

func (rcvr *Receiver) consume(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-rcvr.pump.C():
			if !ok {
				return nil
			}
			if err := rcvr.d.Feed(chunk); err != nil {
				return err
			}
		}
	}
}

// Close releases the source and sinks and logs the session summary.
func (rcvr *Receiver) Close() error {
	perr := rcvr.pump.Close()
	err := rcvr.sinks.Close()
	if err == nil {
		err = perr
	}

	rcvr.d.Log()
	if rcvr.digest != nil {
		rcvr.digest.Log(rcvr.log)
	}
	if rcvr.lanes != nil {
		rcvr.log.WithField("dir", rcvr.lanes.Dir).Info("lane files written")
	}
	if rcvr.tee != nil {
		rcvr.log.WithFields(logrus.Fields{
			"file":    rcvr.cfg.Source.RawFile,
			"samples": rcvr.tee.Samples(),
		}).Info("raw samples recorded")
	}

	return err
}

var (
	buildTag   = "dev"     // v#.#.#
	buildDate  = "unknown" // date -u '+%Y-%m-%d'
	commitHash = "unknown" // git rev-parse HEAD
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	fs := flag.NewFlagSet("chandemux", flag.ExitOnError)
	flags := RegisterFlags(fs)
	EnvOverride(fs, log)
	fs.Parse(os.Args[1:])

	if flags.Version {
		fmt.Println("Build Tag: ", buildTag)
		fmt.Println("Build Date:", buildDate)
		fmt.Println("Commit:    ", commitHash)
		os.Exit(0)
	}

	cfg, err := flags.Config()
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Log.Apply(log); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rcvr, err := NewReceiver(cfg, log)
	if err != nil {
		log.Fatal(err)
	}

	runErr := rcvr.Run(ctx)
	closeErr := rcvr.Close()

	if runErr != nil {
		log.WithError(runErr).Error("receiver failed")
	}
	if closeErr != nil {
		log.WithError(closeErr).Error("closing outputs failed")
	}
	if runErr != nil || closeErr != nil {
		stop()
		os.Exit(1)
	}
}
