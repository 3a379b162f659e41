// Writes a synthetic sample file: zero bits, the preamble, then frames of
// random lane bytes. The expected lane bytes are written alongside so a
// receiver run over the samples can be checked with cmp.

package main

import (
	"bufio"
	"encoding/binary"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/chandemux/chandemux/decode"
	"github.com/chandemux/chandemux/gen"
	"github.com/chandemux/chandemux/sink"
)

var (
	out       = flag.String("out", "samples.bin", "sample file to write")
	expectDir = flag.String("expect", "", "directory for the expected lane files, empty to skip")
	frames    = flag.Int("frames", 1024, "frames of random lane bytes")
	lead      = flag.Int("lead", 1000, "zero bits before the preamble")
	amplitude = flag.Int16("amplitude", 8000, "signal amplitude")
	noise     = flag.Float64("noise", 1000, "uniform noise amplitude")
	seed      = flag.Int64("seed", 1, "random seed")
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := decode.NewConfig()
	flag.IntVar(&cfg.DecimationRatio, "decimation", cfg.DecimationRatio, "raw samples per bit")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	r := rand.New(rand.NewSource(*seed))
	lanes := gen.RandLanes(r, cfg.Channels*cfg.Lanes, *frames*cfg.LaneBytes)

	bits := make([]byte, *lead)
	bits = append(bits, gen.Bits(cfg.Preamble())...)
	bits = append(bits, gen.Mux(lanes, cfg.Channels, cfg.Lanes, cfg.LaneBytes)...)

	signal := gen.Modulate(bits, cfg.DecimationRatio, *amplitude)
	gen.AddNoise(r, signal, *noise)

	f, err := os.Create(*out)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, signal); err != nil {
		log.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		log.Fatal(err)
	}

	log.WithFields(logrus.Fields{
		"file":    *out,
		"samples": len(signal),
		"frames":  *frames,
		"offset":  *lead + cfg.PreambleBits,
	}).Info("samples written")

	if *expectDir == "" {
		return
	}

	if err := os.MkdirAll(*expectDir, 0755); err != nil {
		log.Fatal(err)
	}
	for idx, data := range lanes {
		name := filepath.Join(*expectDir, sink.LaneFileName(idx/cfg.Lanes+1, idx%cfg.Lanes+1))
		if err := os.WriteFile(name, data, 0644); err != nil {
			log.Fatal(err)
		}
	}
	log.WithField("dir", *expectDir).Info("expected lane files written")
}
