package tag

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// byteReader wraps a seekable input stream with the little-bit of state
// (current offset) the section framer and object reader need. It never
// buffers more than the current primitive being decoded.
type byteReader struct {
	r io.ReadSeeker
}

func (r *byteReader) tell() int64 {
	pos, _ := r.r.Seek(0, io.SeekCurrent)
	return pos
}

func (r *byteReader) seek(pos int64) error {
	_, err := r.r.Seek(pos, io.SeekStart)
	return err
}

func (r *byteReader) readN(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (r *byteReader) u8() (uint8, error) {
	b, err := r.readN(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *byteReader) u16le() (uint16, error) {
	b, err := r.readN(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *byteReader) u32le() (uint32, error) {
	b, err := r.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *byteReader) u32be() (uint32, error) {
	b, err := r.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *byteReader) u64le() (uint64, error) {
	b, err := r.readN(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *byteReader) f32le() (float32, error) {
	bits, err := r.u32le()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

// packed decodes one variable-length big-endian integer per spec.md
// section 4.A. It mirrors the reference decoder (including its unusual
// final 0x1F/1 branch, which discards the leading byte entirely) so that
// it accepts anything a real encoder in the wild might produce.
func (r *byteReader) packed() (uint64, error) {
	b, err := r.u8()
	if err != nil {
		return 0, err
	}
	if b&0x80 == 0 {
		return uint64(b), nil
	}

	switch c := b >> 3; {
	case c >= 0x10 && c <= 0x17:
		b2, err := r.u8()
		if err != nil {
			return 0, err
		}
		v := uint64(b)<<8 | uint64(b2)
		return v & 0x3fff, nil

	case c >= 0x18 && c <= 0x1B:
		b2, err := r.u8()
		if err != nil {
			return 0, err
		}
		b3, err := r.u8()
		if err != nil {
			return 0, err
		}
		v := uint64(b)<<16 | uint64(b2)<<8 | uint64(b3)
		return v & 0x1fffff, nil

	case c == 0x1C:
		rest, err := r.readN(3)
		if err != nil {
			return 0, err
		}
		v := uint64(b)<<24 | uint64(rest[0])<<16 | uint64(rest[1])<<8 | uint64(rest[2])
		return v & 0x7ffffff, nil

	case c == 0x1D:
		rest, err := r.readN(4)
		if err != nil {
			return 0, err
		}
		v := uint64(b)<<32 | uint64(rest[0])<<24 | uint64(rest[1])<<16 | uint64(rest[2])<<8 | uint64(rest[3])
		return v & 0x07FFFFFFFFFFFFFF, nil

	case c == 0x1E:
		rest, err := r.readN(7)
		if err != nil {
			return 0, err
		}
		v := uint64(b) << 56
		for i, x := range rest {
			v |= uint64(x) << uint((6-i)*8)
		}
		return v & 0x7FFFFFFFFFFFFFFF, nil

	case c == 0x1F:
		switch b & 7 {
		case 0:
			rest, err := r.readN(5)
			if err != nil {
				return 0, err
			}
			v := uint64(b) << 40
			for i, x := range rest {
				v |= uint64(x) << uint((4-i)*8)
			}
			return v & 0xFFFFFFFFFF, nil
		case 1:
			rest, err := r.readN(8)
			if err != nil {
				return 0, err
			}
			var v uint64
			for _, x := range rest {
				v = v<<8 | uint64(x)
			}
			return v, nil
		}
	}
	return 0, nil
}

// byteWriter is a seekable, growable in-memory output buffer. The writer
// half of the codec constantly seeks backward to patch lengths and
// item/member counts, which bytes.Buffer cannot do.
type byteWriter struct {
	data []byte
	pos  int
}

func (w *byteWriter) tell() int64 { return int64(w.pos) }

func (w *byteWriter) seek(pos int64) error {
	if pos < 0 {
		return fmt.Errorf("tag: negative seek %d", pos)
	}
	w.pos = int(pos)
	return nil
}

func (w *byteWriter) bytes() []byte { return w.data }

func (w *byteWriter) Write(p []byte) (int, error) {
	end := w.pos + len(p)
	if end > len(w.data) {
		grown := make([]byte, end)
		copy(grown, w.data)
		w.data = grown
	}
	copy(w.data[w.pos:end], p)
	w.pos = end
	return len(p), nil
}

func (w *byteWriter) writeZeros(n int) error {
	if n <= 0 {
		return nil
	}
	_, err := w.Write(make([]byte, n))
	return err
}

func (w *byteWriter) u8(v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func (w *byteWriter) u16le(v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func (w *byteWriter) u16be(v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func (w *byteWriter) u32le(v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func (w *byteWriter) u32be(v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func (w *byteWriter) f32le(v float32) error {
	return w.u32le(math.Float32bits(v))
}

// pad advances to the next multiple of alignment by writing zero bytes.
func (w *byteWriter) pad(alignment int) error {
	if alignment <= 1 {
		return nil
	}
	amount := alignment - int(w.tell())%alignment
	if amount == alignment {
		return nil
	}
	return w.writeZeros(amount)
}

// writePacked picks the narrowest of the four classes the reference
// encoder produces (spec.md section 4.A). Values that do not fit any of
// them are a programmer error: the caller handed the codec data the
// format cannot represent, not a data corruption the decoder should ever
// need to tolerate.
func (w *byteWriter) writePacked(v uint64) error {
	switch {
	case v < 0x80:
		return w.u8(uint8(v))
	case v < 0x4000:
		return w.u16be(uint16(v) | 0x8000)
	case v < 0x200000:
		if err := w.u8(uint8(v>>16) | 0xc0); err != nil {
			return err
		}
		return w.u16be(uint16(v & 0xffff))
	case v < 0x8000000:
		return w.u32be(uint32(v) | 0xe0000000)
	default:
		return fmt.Errorf("tag: packed integer %d exceeds the 27-bit range this encoder produces", v)
	}
}

// nextPowerOfTwo returns the smallest power of two >= n (n>0).
func nextPowerOfTwo(n uint32) uint32 {
	if n <= 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	return n + 1
}
