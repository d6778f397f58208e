package randlist

import "encoding/binary"

func ensureCapacity(buf []byte, minCap int) []byte {
	c := cap(buf)
	if minCap > c {
		if c < 16 {
			c = 16
		}
		for minCap > c {
			c <<= 1
		}
		old := buf
		buf = make([]byte, len(old), c)
		copy(buf, old)
	}
	return buf
}

func grow(buf []byte, n int) (int, []byte) {
	off := len(buf)
	newLen := off + n
	buf = ensureCapacity(buf, newLen)
	return off, buf[:newLen]
}

// bytesBuilder is a growable byte arena. Reset empties it but keeps the
// backing array, so a single builder serves a whole list.
type bytesBuilder struct {
	Buf []byte
}

func newBytesBuilder(size int) bytesBuilder {
	return bytesBuilder{make([]byte, 0, size)}
}

func (bb *bytesBuilder) Len() int {
	return len(bb.Buf)
}

// Free returns the number of bytes that can be appended without growing.
func (bb *bytesBuilder) Free() int {
	return cap(bb.Buf) - len(bb.Buf)
}

// FreeSpace returns the unused tail of the backing array.
func (bb *bytesBuilder) FreeSpace() []byte {
	return bb.Buf[len(bb.Buf):cap(bb.Buf)]
}

// Advance marks n bytes of FreeSpace as written.
func (bb *bytesBuilder) Advance(n int) {
	if n > bb.Free() {
		panic("bytesBuilder: advance past capacity")
	}
	bb.Buf = bb.Buf[:len(bb.Buf)+n]
}

func (bb *bytesBuilder) Reset() {
	bb.Buf = bb.Buf[:0]
}

func (bb *bytesBuilder) Grow(n int) (off int) {
	off, bb.Buf = grow(bb.Buf, n)
	return
}

func (bb *bytesBuilder) AppendFixedInt32(v int32) {
	off := bb.Grow(4)
	binary.LittleEndian.PutUint32(bb.Buf[off:], uint32(v))
}

// readBuffer returns buf resliced to exactly n bytes, reallocating only when
// the current capacity cannot hold n. Unlike ensureCapacity it never rounds
// the capacity up, so one oversized payload does not pin a doubled array.
func readBuffer(buf []byte, n int) []byte {
	if cap(buf) < n {
		return make([]byte, n)
	}
	return buf[:n]
}
