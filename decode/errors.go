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

package decode

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrMalformedChunk is returned by Feed for an empty or nil chunk. The
	// session is left untouched.
	ErrMalformedChunk = errors.New("malformed chunk")

	// ErrConfig is the cause of every configuration error.
	ErrConfig = errors.New("invalid configuration")

	// ErrAborted is returned by a session that previously failed to deliver
	// a frame. The caller must tear it down and start a new one.
	ErrAborted = errors.New("session aborted")

	// ErrClosed is returned by Feed after Close.
	ErrClosed = errors.New("session closed")
)

// SinkError reports a frame the sink refused. A session that produced one is
// unrecoverable.
type SinkError struct {
	// Index of the refused frame. For a failed Flush, the index following
	// the last frame written.
	Frame uint64
	Err   error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink write failed at frame %d: %s", e.Frame, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}
