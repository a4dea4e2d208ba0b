package ani

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Encode writes a as a canonical animated cursor. Header frame and step
// counts and the flags are derived from a; the remaining header fields are
// taken from a.Header. Frames are written verbatim.
func Encode(a *AniData) ([]byte, error) {
	if len(a.Frames) == 0 {
		return nil, ErrNoFrames
	}
	for step, idx := range a.Sequence {
		if int(idx) >= len(a.Frames) {
			return nil, fmt.Errorf("%w: step %d wants frame %d of %d", ErrBadSequence, step, idx, len(a.Frames))
		}
	}

	var body bytes.Buffer
	body.WriteString("ACON")

	if a.Title != "" || a.Author != "" {
		var info bytes.Buffer
		info.WriteString("INFO")
		if a.Title != "" {
			writeChunk(&info, "INAM", append([]byte(a.Title), 0))
		}
		if a.Author != "" {
			writeChunk(&info, "IART", append([]byte(a.Author), 0))
		}
		writeChunk(&body, "LIST", info.Bytes())
	}

	h := a.Header
	h.Frames = uint32(len(a.Frames))
	h.Steps = uint32(a.Steps())
	h.DisplayRate = a.DefaultRate
	h.Flags = FlagIcon
	if len(a.Sequence) > 0 {
		h.Flags |= FlagSequence
	}
	anih := make([]byte, aniHeaderSize)
	for i, v := range []uint32{aniHeaderSize, h.Frames, h.Steps, h.Width, h.Height, h.BitCount, h.Planes, h.DisplayRate, h.Flags} {
		binary.LittleEndian.PutUint32(anih[i*4:], v)
	}
	writeChunk(&body, "anih", anih)

	if len(a.Rates) > 0 {
		writeChunk(&body, "rate", uint32s(a.Rates))
	}
	if len(a.Sequence) > 0 {
		writeChunk(&body, "seq ", uint32s(a.Sequence))
	}

	var fram bytes.Buffer
	fram.WriteString("fram")
	for _, f := range a.Frames {
		writeChunk(&fram, "icon", f)
	}
	writeChunk(&body, "LIST", fram.Bytes())

	var out bytes.Buffer
	writeChunk(&out, "RIFF", body.Bytes())
	return out.Bytes(), nil
}

func writeChunk(w *bytes.Buffer, id string, data []byte) {
	var hdr [chunkHeaderSize]byte
	copy(hdr[:4], id)
	binary.LittleEndian.PutUint32(hdr[4:], uint32(len(data)))
	w.Write(hdr[:])
	w.Write(data)
	if len(data)&1 == 1 {
		w.WriteByte(0)
	}
}

func uint32s(vs []uint32) []byte {
	b := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(b[i*4:], v)
	}
	return b
}
