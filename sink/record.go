package sink

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chandemux/chandemux/decode"
)

const (
	TimeFormat = "2006-01-02T15:04:05.000"
)

// A Record is one decoded frame as written to the frame log.
type Record struct {
	XMLName xml.Name   `xml:"frame" json:"-"`
	Time    time.Time  `xml:"time,attr" json:"time"`
	Index   uint64     `xml:"index,attr" json:"index"`
	Lanes   []LaneData `xml:"lane" json:"lanes"`
}

type LaneData struct {
	Channel int    `xml:"channel,attr" json:"channel"`
	Lane    int    `xml:"lane,attr" json:"lane"`
	Data    string `xml:",chardata" json:"data"` // upper-case hex
}

func NewRecord(t time.Time, f decode.Frame) (rec Record) {
	rec.Time = t
	rec.Index = f.Index
	rec.Lanes = make([]LaneData, 0, f.Channels*f.Lanes)

	f.Each(func(channel, lane int, p []byte) error {
		rec.Lanes = append(rec.Lanes, LaneData{channel, lane, fmt.Sprintf("%02X", p)})
		return nil
	})

	return
}

func (rec Record) String() string {
	data := make([]string, len(rec.Lanes))
	for idx, l := range rec.Lanes {
		data[idx] = l.Data
	}

	return fmt.Sprintf("{Time:%s Frame:%d Lanes:[%s]}",
		rec.Time.Format(TimeFormat), rec.Index, strings.Join(data, " "),
	)
}

func (rec Record) Record() (r []string) {
	r = append(r, rec.Time.Format(time.RFC3339Nano))
	r = append(r, strconv.FormatUint(rec.Index, 10))
	for _, l := range rec.Lanes {
		r = append(r, l.Data)
	}
	return r
}

// Header names the csv columns written for frames of cfg's layout.
func Header(cfg decode.Config) []string {
	h := []string{"time", "frame"}
	for channel := 1; channel <= cfg.Channels; channel++ {
		for lane := 1; lane <= cfg.Lanes; lane++ {
			h = append(h, fmt.Sprintf("ch%d_lane%d", channel, lane))
		}
	}
	return h
}

func jsonEncoder(w io.Writer) Encoder {
	return json.NewEncoder(w)
}

// XML records are newline separated so the log can be followed line by line.
type lineXMLEncoder struct {
	w   io.Writer
	enc *xml.Encoder
}

func xmlEncoder(w io.Writer) Encoder {
	return lineXMLEncoder{w, xml.NewEncoder(w)}
}

func (e lineXMLEncoder) Encode(v interface{}) error {
	if err := e.enc.Encode(v); err != nil {
		return err
	}
	_, err := io.WriteString(e.w, "\n")
	return err
}
