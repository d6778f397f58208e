package store

import (
	"bytes"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Meta describes a stored list.
type Meta struct {
	Length      int            `msgpack:"n"`
	RawSize     int64          `msgpack:"raw"` // wire bytes before compression
	StoredSize  int64          `msgpack:"sz"`
	Compression CompressionTag `msgpack:"c"`
	Checksum    uint64         `msgpack:"x"` // xxhash64 of the wire bytes
	SavedAt     time.Time      `msgpack:"t"`
}

func encodeMeta(m *Meta) []byte {
	var buf bytes.Buffer
	enc := msgpack.GetEncoder()
	enc.Reset(&buf)
	enc.SetSortMapKeys(true)
	err := enc.Encode(m)
	msgpack.PutEncoder(enc)
	if err != nil {
		panic(fmt.Errorf("failed to encode list meta using MsgPack: %w", err))
	}
	return buf.Bytes()
}

func decodeMeta(raw []byte) (Meta, error) {
	var m Meta
	dec := msgpack.GetDecoder()
	dec.Reset(bytes.NewReader(raw))
	err := dec.Decode(&m)
	msgpack.PutDecoder(dec)
	if err != nil {
		return Meta{}, fmt.Errorf("%w: meta: %v", ErrCorrupted, err)
	}
	return m, nil
}
