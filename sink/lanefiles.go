package sink

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lestrrat-go/strftime"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/chandemux/chandemux/decode"
)

const (
	// DefaultDirPattern names a session's output directory by its start time.
	DefaultDirPattern = "%Y%m%d_%H%M%S"
)

type laneFile struct {
	name string
	f    *os.File
	w    *bufio.Writer
}

// LaneFiles appends each lane's bytes to its own file, ch1_lane1.bin through
// ch8_lane2.bin for the default layout, in a directory created per session.
type LaneFiles struct {
	Dir string

	lanes int
	files []laneFile
	log   logrus.FieldLogger
}

// LaneFileName is the file holding the given 1-based channel and lane.
func LaneFileName(channel, lane int) string {
	return fmt.Sprintf("ch%d_lane%d.bin", channel, lane)
}

// NewLaneFiles creates root/<pattern expanded at start> and one file per lane
// of cfg inside it. Existing files are appended to.
func NewLaneFiles(root, pattern string, start time.Time, cfg decode.Config, log logrus.FieldLogger) (*LaneFiles, error) {
	if pattern == "" {
		pattern = DefaultDirPattern
	}

	name, err := strftime.Format(pattern, start)
	if err != nil {
		return nil, errors.Wrapf(err, "directory pattern %q", pattern)
	}

	lf := &LaneFiles{
		Dir:   filepath.Join(root, name),
		lanes: cfg.Lanes,
		log:   log,
	}

	if err := os.MkdirAll(lf.Dir, 0755); err != nil {
		return nil, errors.Wrap(err, "create output directory")
	}

	for channel := 1; channel <= cfg.Channels; channel++ {
		for lane := 1; lane <= cfg.Lanes; lane++ {
			path := filepath.Join(lf.Dir, LaneFileName(channel, lane))

			f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				lf.Close()
				return nil, errors.Wrap(err, "create lane file")
			}

			lf.files = append(lf.files, laneFile{path, f, bufio.NewWriter(f)})
		}
	}

	log.WithFields(logrus.Fields{
		"dir":   lf.Dir,
		"files": len(lf.files),
	}).Info("lane files created")

	return lf, nil
}

func (lf *LaneFiles) WriteFrame(f decode.Frame) error {
	return f.Each(func(channel, lane int, p []byte) error {
		file := lf.files[(channel-1)*lf.lanes+lane-1]
		if _, err := file.w.Write(p); err != nil {
			return errors.Wrapf(err, "write %s", file.name)
		}
		return nil
	})
}

// Flush writes buffered lane bytes through to the files. The decoder calls
// it after every chunk.
func (lf *LaneFiles) Flush() error {
	for _, file := range lf.files {
		if err := file.w.Flush(); err != nil {
			return errors.Wrapf(err, "flush %s", file.name)
		}
	}
	return nil
}

// Close flushes and closes every file, returning the first error.
func (lf *LaneFiles) Close() (err error) {
	for _, file := range lf.files {
		if ferr := file.w.Flush(); ferr != nil && err == nil {
			err = errors.Wrapf(ferr, "flush %s", file.name)
		}
		if cerr := file.f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close %s", file.name)
		}
	}
	lf.files = nil

	return err
}
