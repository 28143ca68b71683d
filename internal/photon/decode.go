// Package photon decodes photon-arrival recordings and ranks them by mean
// photon rate.
//
// # File layout
//
// All words are little-endian unsigned 32-bit integers.
//
//	offset  size  content
//	0       64    ASCII header text
//	64      16    identifier (4 words, opaque)
//	80      16    settings (4 words, index 3 is the sync rate in Hz)
//	96      32    reserved (8 words)
//	128     ...   inter-arrival deltas in sync ticks
//
// Arrival times are the running sum of the deltas, accumulated in 64 bits.
package photon

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ironsheep/stagepoint/internal/errs"
)

const (
	headerSize   = 64
	identWords   = 4
	settingWords = 4
	skipWords    = 8

	// dataOffset is where the delta records begin.
	dataOffset = headerSize + 4*(identWords+settingWords+skipWords)
)

// Stream is one decoded photon recording.
type Stream struct {
	Header     string
	Identifier [identWords]uint32
	Settings   [settingWords]uint32

	// SyncRate is the sync clock rate in Hz, Settings[3].
	SyncRate uint32

	// Channel is the last header character when it is a digit, else 0.
	Channel int

	// Ticks are absolute arrival times in sync ticks, non-decreasing.
	Ticks []uint64
}

// Duration returns the measurement time in seconds, the last tick divided by
// the sync rate. An empty stream lasts zero seconds.
func (s *Stream) Duration() float64 {
	if len(s.Ticks) == 0 {
		return 0
	}
	return float64(s.Ticks[len(s.Ticks)-1]) / float64(s.SyncRate)
}

// Seconds converts the arrival ticks to seconds.
func (s *Stream) Seconds() []float64 {
	out := make([]float64, len(s.Ticks))
	rate := float64(s.SyncRate)
	for i, t := range s.Ticks {
		out[i] = float64(t) / rate
	}
	return out
}

// DecodeFile reads and decodes a photon recording from disk.
func DecodeFile(path string) (*Stream, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read photon file: %w", err)
	}
	s, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Decode reads a whole photon recording from r.
func Decode(r io.Reader) (*Stream, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read photon stream: %w", err)
	}
	return decode(data)
}

func decode(data []byte) (*Stream, error) {
	if len(data) < dataOffset {
		return nil, errs.New(errs.Decode, "photon.Decode",
			"stream is %d bytes, shorter than the %d byte header", len(data), dataOffset)
	}

	s := &Stream{Header: asciiOnly(data[:headerSize])}

	le := binary.LittleEndian
	off := headerSize
	for i := range s.Identifier {
		s.Identifier[i] = le.Uint32(data[off:])
		off += 4
	}
	for i := range s.Settings {
		s.Settings[i] = le.Uint32(data[off:])
		off += 4
	}
	s.SyncRate = s.Settings[3]
	if s.SyncRate == 0 {
		return nil, errs.New(errs.Decode, "photon.Decode", "sync rate is zero")
	}

	s.Channel = channelFromHeader(s.Header)

	// A trailing partial word is ignored.
	records := data[dataOffset:]
	n := len(records) / 4
	s.Ticks = make([]uint64, n)
	var sum uint64
	for i := 0; i < n; i++ {
		sum += uint64(le.Uint32(records[4*i:]))
		s.Ticks[i] = sum
	}

	return s, nil
}

// asciiOnly drops bytes outside the 7-bit ASCII range.
func asciiOnly(b []byte) string {
	return string(bytes.Map(func(r rune) rune {
		if r >= 0x80 {
			return -1
		}
		return r
	}, b))
}

// channelFromHeader returns the trailing digit of the trimmed header, or 0.
func channelFromHeader(header string) int {
	h := strings.TrimSpace(header)
	if h == "" {
		return 0
	}
	c := h[len(h)-1]
	if c < '0' || c > '9' {
		return 0
	}
	return int(c - '0')
}
