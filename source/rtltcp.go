package source

import (
	"io"
	"math"
	"net"

	"github.com/bemasher/rtltcp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Tuning holds the rtl_tcp settings applied after connecting. Zero gain
// leaves the tuner on automatic gain.
type Tuning struct {
	CenterFreq uint32
	SampleRate uint32
	Gain       uint32 // tenths of a dB
}

// RTLTCP reads interleaved 8-bit IQ from an rtl_tcp server and converts each
// pair to a signed 16-bit magnitude sample.
type RTLTCP struct {
	rtltcp.SDR

	lut MagLUT
	buf []byte
}

// DialRTLTCP connects to the rtl_tcp server at addr and applies tuning.
func DialRTLTCP(addr string, tuning Tuning, log logrus.FieldLogger) (*RTLTCP, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "resolve rtl_tcp address")
	}

	src := &RTLTCP{lut: NewMagLUT()}
	if err := src.Connect(tcpAddr); err != nil {
		return nil, errors.WithStack(err)
	}

	if err := src.tune(tuning); err != nil {
		src.Close()
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"server":     addr,
		"tuner":      src.Info.Tuner,
		"gain_count": src.Info.GainCount,
		"centerfreq": tuning.CenterFreq,
		"samplerate": tuning.SampleRate,
	}).Info("connected to rtl_tcp")

	return src, nil
}

func (src *RTLTCP) tune(t Tuning) error {
	if err := src.SetCenterFreq(t.CenterFreq); err != nil {
		return errors.Wrap(err, "set center frequency")
	}
	if err := src.SetSampleRate(t.SampleRate); err != nil {
		return errors.Wrap(err, "set sample rate")
	}

	if t.Gain == 0 {
		return errors.Wrap(src.SetGainMode(true), "set gain mode")
	}
	if err := src.SetGainMode(false); err != nil {
		return errors.Wrap(err, "set gain mode")
	}
	return errors.Wrap(src.SetGain(t.Gain), "set gain")
}

func (src *RTLTCP) ReadSamples(p []int16) (int, error) {
	if cap(src.buf) < len(p)<<1 {
		src.buf = make([]byte, len(p)<<1)
	}
	buf := src.buf[:len(p)<<1]

	// Never split an IQ pair.
	n, err := io.ReadFull(src.TCPConn, buf)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}

	src.lut.Execute(buf[:n&^1], p)

	return n >> 1, err
}

// MagLUT maps an IQ pair to its squared magnitude scaled to the int16 range.
// Squares are computed around the most common DC offset for rtl-sdr dongles.
type MagLUT []float64

func NewMagLUT() (lut MagLUT) {
	lut = make([]float64, 0x100)
	for idx := range lut {
		lut[idx] = (127.5 - float64(idx)) / 127.5
		lut[idx] *= lut[idx]
	}
	return
}

// Execute converts len(input)/2 IQ pairs into output.
func (lut MagLUT) Execute(input []byte, output []int16) {
	i := 0
	for idx := 0; idx < len(input)>>1; idx++ {
		mag := (lut[input[i]] + lut[input[i+1]]) / 2
		output[idx] = int16(math.Min(mag*math.MaxInt16, math.MaxInt16))
		i += 2
	}
}
