package source

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Pump reads fixed-size chunks from a source on its own goroutine and queues
// them for a single consumer. Chunks live in a ring of depth+2 buffers: up to
// depth queued, one held by the consumer and one being filled, so a chunk
// received from C stays valid until the consumer receives the next one.
type Pump struct {
	src  Source
	ring [][]int16
	ch   chan []int16
	log  logrus.FieldLogger

	closeOnce sync.Once
	closeErr  error

	progress time.Duration

	chunks  atomic.Uint64
	samples atomic.Uint64
}

func NewPump(src Source, chunkSize, depth int, log logrus.FieldLogger) *Pump {
	if depth < 1 {
		depth = 1
	}

	p := &Pump{
		src:  src,
		ring: make([][]int16, depth+2),
		ch:   make(chan []int16, depth),
		log:  log,
	}
	for idx := range p.ring {
		p.ring[idx] = make([]int16, chunkSize)
	}

	return p
}

// SetProgress makes Run log transfer progress every interval. Zero disables
// it.
func (p *Pump) SetProgress(interval time.Duration) {
	p.progress = interval
}

// C delivers chunks in read order and is closed when Run returns.
func (p *Pump) C() <-chan []int16 {
	return p.ch
}

// Run reads until the source is exhausted, fails, or ctx is done. The source
// is closed on return, or as soon as ctx is done to unblock a pending read. A
// final short chunk is delivered before Run returns nil at end of stream.
func (p *Pump) Run(ctx context.Context) error {
	defer close(p.ch)
	defer p.Close()

	stop := context.AfterFunc(ctx, func() { p.Close() })
	defer stop()

	if p.progress > 0 {
		done := make(chan struct{})
		defer close(done)
		go p.report(done)
	}

	for idx := 0; ; idx++ {
		block := p.ring[idx%len(p.ring)]

		n, err := readFull(p.src, block)
		if n > 0 {
			select {
			case p.ch <- block[:n]:
				p.chunks.Add(1)
				p.samples.Add(uint64(n))
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err == nil {
			continue
		}

		// A read interrupted by cancellation.
		if ctx.Err() != nil {
			return ctx.Err()
		}

		switch cause := errors.Cause(err); {
		case cause == io.EOF || cause == io.ErrUnexpectedEOF:
			p.log.WithFields(logrus.Fields{
				"chunks":  p.chunks.Load(),
				"samples": p.samples.Load(),
				"reason":  err,
			}).Info("encountered eof")
			return nil
		case isTemporary(cause):
			p.log.WithError(err).Warn("temporary read error")
			continue
		}

		return errors.Wrap(err, "read samples")
	}
}

func (p *Pump) report(done <-chan struct{}) {
	tick := time.NewTicker(p.progress)
	defer tick.Stop()

	pr := NewProgress(time.Now())
	for {
		select {
		case <-done:
			return
		case now := <-tick.C:
			p.log.WithFields(pr.Fields(now, p.samples.Load(), len(p.ch), cap(p.ch))).Info("progress")
		}
	}
}

func isTemporary(err error) bool {
	opErr, ok := err.(*net.OpError)
	return ok && opErr.Temporary()
}

// Close closes the source once.
func (p *Pump) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.src.Close()
	})
	return p.closeErr
}

// Samples is the number of samples delivered so far.
func (p *Pump) Samples() uint64 {
	return p.samples.Load()
}
