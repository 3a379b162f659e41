// Package sink persists decoded frames: raw per-lane files, a formatted frame
// log and running per-lane digests, fanned out by Multi.
package sink

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/chandemux/chandemux/csv"
	"github.com/chandemux/chandemux/decode"
)

var (
	encoderMutex sync.Mutex
	encoders     = make(map[string]NewEncoderFunc)
)

// JSON, XML and CSV all implement this interface so we can simplify log
// output formatting.
type Encoder interface {
	Encode(interface{}) error
}

type NewEncoderFunc func(w io.Writer, cfg decode.Config) Encoder

func Register(name string, encoderFn NewEncoderFunc) {
	encoderMutex.Lock()
	defer encoderMutex.Unlock()

	if encoderFn == nil {
		panic("sink: new encoder func is nil")
	}
	if _, dup := encoders[name]; dup {
		panic(fmt.Sprintf("sink: encoder already registered (%s)", name))
	}
	encoders[name] = encoderFn
}

// NewEncoder returns the encoder registered under name, writing to w.
func NewEncoder(name string, w io.Writer, cfg decode.Config) (Encoder, error) {
	encoderMutex.Lock()
	defer encoderMutex.Unlock()

	encoderFn, exists := encoders[name]
	if !exists {
		return nil, errors.Errorf("invalid format: %q", name)
	}

	return encoderFn(w, cfg), nil
}

// Formats lists registered encoder names.
func Formats() (names []string) {
	encoderMutex.Lock()
	defer encoderMutex.Unlock()

	for name := range encoders {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// PlainEncoder writes one value per line in its default format.
type PlainEncoder struct {
	w io.Writer
}

func (pe PlainEncoder) Encode(v interface{}) (err error) {
	_, err = fmt.Fprintln(pe.w, v)
	return
}

func init() {
	Register("plain", func(w io.Writer, _ decode.Config) Encoder {
		return PlainEncoder{w}
	})
	Register("csv", func(w io.Writer, cfg decode.Config) Encoder {
		return csv.NewHeaderEncoder(w, Header(cfg)...)
	})
	Register("json", func(w io.Writer, _ decode.Config) Encoder {
		return jsonEncoder(w)
	})
	Register("xml", func(w io.Writer, _ decode.Config) Encoder {
		return xmlEncoder(w)
	})
}

// Multi writes every frame to each sink in order, stopping at the first
// error.
type Multi []decode.Sink

func (m Multi) WriteFrame(f decode.Frame) error {
	for _, s := range m {
		if err := s.WriteFrame(f); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes every sink implementing decode.Flusher, stopping at the first
// error.
func (m Multi) Flush() error {
	for _, s := range m {
		if fl, ok := s.(decode.Flusher); ok {
			if err := fl.Flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every sink implementing io.Closer and returns the first error.
func (m Multi) Close() (err error) {
	for _, s := range m {
		if c, ok := s.(io.Closer); ok {
			if cerr := c.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
	}
	return err
}
