// Package ani decodes and encodes animated cursors: a RIFF "ACON" form
// holding an "anih" header, optional "rate" and "seq " step arrays, an
// optional LIST/INFO block, and a LIST/fram block with one "icon" chunk per
// stored frame. Each frame is a complete cursor or icon container.
package ani

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/cursorbox/internal/cur"
)

// Header flag bits.
const (
	FlagIcon     = 0x1 // frames are icon/cursor containers, not raw bitmaps
	FlagSequence = 0x2 // a "seq " chunk is present
)

// JiffiesPerSecond is the unit of every ANI rate value.
const JiffiesPerSecond = 60

const (
	riffHeaderSize  = 12
	chunkHeaderSize = 8
	aniHeaderSize   = 36
)

// Parse errors.
var (
	ErrNotRIFF       = errors.New("not a RIFF ACON container")
	ErrTruncated     = errors.New("animated cursor truncated")
	ErrMissingHeader = errors.New("animated cursor has no anih chunk")
	ErrNoFrames      = errors.New("animated cursor has no frames")
	ErrBadSequence   = errors.New("sequence references a missing frame")
	ErrBadFrame      = errors.New("invalid animated cursor frame")
)

// Header mirrors the anih chunk.
type Header struct {
	Frames      uint32
	Steps       uint32
	Width       uint32
	Height      uint32
	BitCount    uint32
	Planes      uint32
	DisplayRate uint32 // default jiffies per step
	Flags       uint32
}

// AniData is a parsed animated cursor. Frames alias the input buffer.
type AniData struct {
	Header   Header
	Frames   [][]byte
	Sequence []uint32 // frame index per step; empty means storage order
	Rates    []uint32 // jiffies per step; missing entries use DefaultRate
	// DefaultRate is the header's display rate.
	DefaultRate uint32
	Title       string
	Author      string
}

// Steps returns the number of animation steps.
func (a *AniData) Steps() int {
	if len(a.Sequence) > 0 {
		return len(a.Sequence)
	}
	return len(a.Frames)
}

// FrameAt returns the stored frame index shown at step.
func (a *AniData) FrameAt(step int) int {
	if len(a.Sequence) > 0 {
		return int(a.Sequence[step])
	}
	return step
}

// Order returns the frame index of every step.
func (a *AniData) Order() []int {
	order := make([]int, a.Steps())
	for i := range order {
		order[i] = a.FrameAt(i)
	}
	return order
}

// RateAt returns the jiffies step is displayed for.
func (a *AniData) RateAt(step int) uint32 {
	if step < len(a.Rates) {
		return a.Rates[step]
	}
	return a.DefaultRate
}

// Hotspot probes the first frame's hotspot.
func (a *AniData) Hotspot() cur.HotspotProbe {
	if len(a.Frames) == 0 {
		return cur.HotspotProbe{Status: cur.ProbeNotAttempted}
	}
	return cur.ProbeHotspot(a.Frames[0])
}

// Parse decodes an animated cursor. It never panics on malformed input.
func Parse(data []byte) (*AniData, error) {
	if len(data) < riffHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncated, len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "ACON" {
		return nil, ErrNotRIFF
	}
	end := len(data)
	if declared := uint64(binary.LittleEndian.Uint32(data[4:])) + 8; declared < uint64(end) {
		end = int(declared)
	}
	if end < riffHeaderSize {
		return nil, fmt.Errorf("%w: RIFF size %d", ErrTruncated, end-8)
	}

	a := &AniData{}
	haveHeader := false
	err := walkChunks(data[riffHeaderSize:end], func(id string, body []byte) error {
		switch id {
		case "anih":
			if len(body) < aniHeaderSize {
				return fmt.Errorf("%w: anih is %d bytes", ErrTruncated, len(body))
			}
			a.Header = parseHeader(body)
			a.DefaultRate = a.Header.DisplayRate
			haveHeader = true
		case "rate":
			a.Rates = parseUint32s(body)
		case "seq ":
			a.Sequence = parseUint32s(body)
		case "LIST":
			return a.parseList(body)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !haveHeader {
		return nil, ErrMissingHeader
	}
	if len(a.Frames) == 0 {
		return nil, ErrNoFrames
	}
	for step, idx := range a.Sequence {
		if int(idx) >= len(a.Frames) {
			return nil, fmt.Errorf("%w: step %d wants frame %d of %d", ErrBadSequence, step, idx, len(a.Frames))
		}
	}
	return a, nil
}

func (a *AniData) parseList(body []byte) error {
	if len(body) < 4 {
		return fmt.Errorf("%w: LIST without type", ErrTruncated)
	}
	switch string(body[0:4]) {
	case "fram":
		return walkChunks(body[4:], func(id string, frame []byte) error {
			if id != "icon" {
				return nil
			}
			if _, err := cur.ParseDirectory(frame); err != nil {
				return fmt.Errorf("%w %d: %w", ErrBadFrame, len(a.Frames), err)
			}
			a.Frames = append(a.Frames, frame)
			return nil
		})
	case "INFO":
		return walkChunks(body[4:], func(id string, text []byte) error {
			switch id {
			case "INAM":
				a.Title = cString(text)
			case "IART":
				a.Author = cString(text)
			}
			return nil
		})
	}
	return nil
}

// walkChunks visits each RIFF chunk in b. Chunk bodies are padded to an
// even length; a missing final pad byte is tolerated.
func walkChunks(b []byte, visit func(id string, body []byte) error) error {
	for off := 0; off < len(b); {
		if len(b)-off < chunkHeaderSize {
			return fmt.Errorf("%w: partial chunk header at %d", ErrTruncated, off)
		}
		id := string(b[off : off+4])
		size := uint64(binary.LittleEndian.Uint32(b[off+4:]))
		start := uint64(off + chunkHeaderSize)
		if start+size > uint64(len(b)) {
			return fmt.Errorf("%w: chunk %q wants %d bytes, %d left", ErrTruncated, id, size, uint64(len(b))-start)
		}
		if err := visit(id, b[start:start+size]); err != nil {
			return err
		}
		off = int(start + size + size&1)
	}
	return nil
}

func parseHeader(b []byte) Header {
	u := func(i int) uint32 { return binary.LittleEndian.Uint32(b[i*4:]) }
	return Header{
		Frames:      u(1),
		Steps:       u(2),
		Width:       u(3),
		Height:      u(4),
		BitCount:    u(5),
		Planes:      u(6),
		DisplayRate: u(7),
		Flags:       u(8),
	}
}

func parseUint32s(b []byte) []uint32 {
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
