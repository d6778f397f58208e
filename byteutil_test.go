package randlist

import (
	"encoding/binary"
	"reflect"
	"testing"
)

func TestBytesBuilder_Basics(t *testing.T) {
	var bb bytesBuilder

	off := bb.Grow(3)
	copy(bb.Buf[off:], []byte{1, 2, 3})
	bb.AppendFixedInt32(-2)
	bb.AppendFixedInt32(0x01020304)

	want := []byte{1, 2, 3, 0xFE, 0xFF, 0xFF, 0xFF}
	want = binary.LittleEndian.AppendUint32(want, 0x01020304)
	if !reflect.DeepEqual(bb.Buf, want) {
		t.Fatalf("bb.Buf = %x, wanted %x", bb.Buf, want)
	}
}

func TestBytesBuilder_ResetKeepsCapacity(t *testing.T) {
	bb := newBytesBuilder(64)
	bb.AppendFixedInt32(1)
	arr := &bb.Buf[:1][0]

	bb.Reset()
	if bb.Len() != 0 || cap(bb.Buf) != 64 || bb.Free() != 64 {
		t.Fatalf("after Reset: len=%d cap=%d free=%d, wanted 0/64/64", bb.Len(), cap(bb.Buf), bb.Free())
	}
	bb.AppendFixedInt32(2)
	if &bb.Buf[0] != arr {
		t.Fatalf("Reset reallocated the backing array")
	}
}

func TestBytesBuilder_FreeSpaceAndAdvance(t *testing.T) {
	bb := newBytesBuilder(8)
	n := copy(bb.FreeSpace(), "abc")
	bb.Advance(n)
	if string(bb.Buf) != "abc" || bb.Free() != 5 {
		t.Fatalf("after Advance: %q free=%d, wanted \"abc\" free=5", bb.Buf, bb.Free())
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	bb.Advance(6)
}

func TestEnsureCapacity(t *testing.T) {
	buf := ensureCapacity(nil, 5)
	if cap(buf) != 16 {
		t.Fatalf("cap = %d, wanted 16", cap(buf))
	}
	buf = append(buf, 1, 2)
	buf = ensureCapacity(buf, 40)
	if cap(buf) != 64 || !reflect.DeepEqual(buf, []byte{1, 2}) {
		t.Fatalf("ensureCapacity = %x cap=%d, wanted 0102 cap=64", buf, cap(buf))
	}
}

func TestReadBuffer(t *testing.T) {
	buf := make([]byte, 0, 10)
	got := readBuffer(buf, 7)
	if len(got) != 7 || cap(got) != 10 {
		t.Fatalf("readBuffer(small) len=%d cap=%d, wanted 7/10", len(got), cap(got))
	}
	got = readBuffer(buf, 33)
	if len(got) != 33 || cap(got) != 33 {
		t.Fatalf("readBuffer(large) len=%d cap=%d, wanted exactly 33/33", len(got), cap(got))
	}
}
