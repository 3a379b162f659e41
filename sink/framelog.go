package sink

import (
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/chandemux/chandemux/decode"
)

// FrameLog encodes a Record for every frame.
type FrameLog struct {
	enc Encoder
	w   io.Writer

	// Timestamps records, defaults to time.Now.
	Now func() time.Time
}

// NewFrameLog writes records to w in the named format: plain, csv, json or
// xml. w is closed by Close if it is an io.Closer.
func NewFrameLog(w io.Writer, format string, cfg decode.Config) (*FrameLog, error) {
	enc, err := NewEncoder(format, w, cfg)
	if err != nil {
		return nil, err
	}

	return &FrameLog{enc: enc, w: w, Now: time.Now}, nil
}

func (fl *FrameLog) WriteFrame(f decode.Frame) error {
	if err := fl.enc.Encode(NewRecord(fl.Now(), f)); err != nil {
		return errors.Wrap(err, "frame log")
	}
	return nil
}

func (fl *FrameLog) Close() error {
	if c, ok := fl.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
