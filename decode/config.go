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
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultDecimationRatio = 10
	DefaultThresholdWindow = 16
	DefaultMarker          = "10101100"
	DefaultValidation      = "11110000"
	DefaultFrameBits       = 128
	DefaultChannels        = 8
	DefaultLanes           = 2

	// Preamble is matched in a 64-bit shift register.
	maxPreambleBits = 64
)

// ThresholdPolicy selects which run of samples a tail window is anchored to.
type ThresholdPolicy string

const (
	// PolicyWindow withholds a threshold window's bits until all of its
	// samples have arrived. Only the final window of the session, flushed by
	// Close, uses the tail rule. Output does not depend on chunk sizes.
	PolicyWindow ThresholdPolicy = "window"

	// PolicyChunk treats each carry-prefixed chunk as the available run and
	// applies the tail rule at every chunk end.
	PolicyChunk ThresholdPolicy = "chunk"
)

// DecisionRule selects the value compared against the threshold for each
// decimated position.
type DecisionRule string

const (
	// DecideFirst uses the first raw sample of each decimation step.
	DecideFirst DecisionRule = "first"

	// DecideMean uses the mean of the step's raw samples.
	DecideMean DecisionRule = "mean"
)

// Config specifies decimation, threshold, preamble and frame layout. It is
// copied by NewDecoder and never changes for the life of a session.
type Config struct {
	DecimationRatio int             `yaml:"decimation_ratio"`
	ThresholdWindow int             `yaml:"threshold_window"`
	ThresholdPolicy ThresholdPolicy `yaml:"threshold_policy"`
	Decision        DecisionRule    `yaml:"decision"`

	// Marker and Validation are strings of ASCII 0's and 1's. The preamble is
	// the marker immediately followed by the validation field.
	Marker     string `yaml:"marker"`
	Validation string `yaml:"validation"`

	FrameBits int `yaml:"frame_bits"`
	Channels  int `yaml:"channels"`
	Lanes     int `yaml:"lanes"`

	// Derived by Validate.
	WindowLength    int `yaml:"-"` // raw samples per threshold window
	SegmentBits     int `yaml:"-"` // bits per channel segment
	LaneBits        int `yaml:"-"` // bits per lane per frame
	LaneBytes       int `yaml:"-"` // bytes per lane per frame
	PreambleBits    int `yaml:"-"`
	BytesPerFrame   int `yaml:"-"`
	SamplesPerFrame int `yaml:"-"`
}

// NewConfig returns the canonical configuration: R=10, W=16, preamble
// 10101100 11110000 and 128-bit frames of 8 channels by 2 lanes.
func NewConfig() (cfg Config) {
	cfg.DecimationRatio = DefaultDecimationRatio
	cfg.ThresholdWindow = DefaultThresholdWindow
	cfg.ThresholdPolicy = PolicyWindow
	cfg.Decision = DecideFirst
	cfg.Marker = DefaultMarker
	cfg.Validation = DefaultValidation
	cfg.FrameBits = DefaultFrameBits
	cfg.Channels = DefaultChannels
	cfg.Lanes = DefaultLanes

	return
}

// Validate checks the configuration and fills in derived fields. Every
// returned error has ErrConfig as its cause.
func (cfg *Config) Validate() error {
	if cfg.DecimationRatio <= 0 {
		return errors.Wrapf(ErrConfig, "decimation ratio must be positive: %d", cfg.DecimationRatio)
	}
	if cfg.ThresholdWindow <= 0 {
		return errors.Wrapf(ErrConfig, "threshold window must be positive: %d", cfg.ThresholdWindow)
	}

	switch cfg.ThresholdPolicy {
	case "":
		cfg.ThresholdPolicy = PolicyWindow
	case PolicyWindow, PolicyChunk:
	default:
		return errors.Wrapf(ErrConfig, "unknown threshold policy: %q", cfg.ThresholdPolicy)
	}

	switch cfg.Decision {
	case "":
		cfg.Decision = DecideFirst
	case DecideFirst, DecideMean:
	default:
		return errors.Wrapf(ErrConfig, "unknown decision rule: %q", cfg.Decision)
	}

	if err := checkBitString("marker", cfg.Marker); err != nil {
		return err
	}
	if err := checkBitString("validation", cfg.Validation); err != nil {
		return err
	}
	cfg.PreambleBits = len(cfg.Marker) + len(cfg.Validation)
	if cfg.PreambleBits > maxPreambleBits {
		return errors.Wrapf(ErrConfig, "preamble longer than %d bits: %d", maxPreambleBits, cfg.PreambleBits)
	}

	if cfg.Channels <= 0 || cfg.Lanes <= 0 {
		return errors.Wrapf(ErrConfig, "channels and lanes must be positive: %dx%d", cfg.Channels, cfg.Lanes)
	}

	// Each lane must receive a whole number of bytes from every frame.
	laneWidth := cfg.Channels * cfg.Lanes * 8
	if cfg.FrameBits <= 0 || cfg.FrameBits%laneWidth != 0 {
		return errors.Wrapf(ErrConfig, "frame size %d is not a multiple of %d channels x %d lanes x 8 bits",
			cfg.FrameBits, cfg.Channels, cfg.Lanes)
	}

	cfg.WindowLength = cfg.ThresholdWindow * cfg.DecimationRatio
	cfg.SegmentBits = cfg.FrameBits / cfg.Channels
	cfg.LaneBits = cfg.SegmentBits / cfg.Lanes
	cfg.LaneBytes = cfg.LaneBits >> 3
	cfg.BytesPerFrame = cfg.FrameBits >> 3
	cfg.SamplesPerFrame = cfg.FrameBits * cfg.DecimationRatio

	return nil
}

func checkBitString(name, bits string) error {
	if bits == "" {
		return errors.Wrapf(ErrConfig, "%s is empty", name)
	}
	if strings.Trim(bits, "01") != "" {
		return errors.Wrapf(ErrConfig, "%s must contain only 0 and 1: %q", name, bits)
	}
	return nil
}

// Preamble returns the full synchronization pattern.
func (cfg Config) Preamble() string {
	return cfg.Marker + cfg.Validation
}

// Log writes the configuration to the given logger.
func (cfg Config) Log(log logrus.FieldLogger) {
	log.Infoln("DecimationRatio:", cfg.DecimationRatio)
	log.Infoln("ThresholdWindow:", cfg.ThresholdWindow)
	log.Infoln("ThresholdPolicy:", cfg.ThresholdPolicy)
	log.Infoln("Decision:", cfg.Decision)
	log.Infoln("WindowLength:", cfg.WindowLength)
	log.Infoln("Preamble:", cfg.Marker, cfg.Validation)
	log.Infoln("FrameBits:", cfg.FrameBits)
	log.Infoln("Channels:", cfg.Channels)
	log.Infoln("Lanes:", cfg.Lanes)
	log.Infoln("LaneBytes:", cfg.LaneBytes)
	log.Infoln("SamplesPerFrame:", cfg.SamplesPerFrame)
}
