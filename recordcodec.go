package randlist

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"
	"unsafe"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	// DefaultBufferSize is the size of the codec buffer used when none is
	// configured.
	DefaultBufferSize = 4096

	// MinBufferSize is the smallest buffer a RecordWriter accepts; it must fit
	// the length prefix plus one record header.
	MinBufferSize = 32

	// maxEagerPayload is the largest payload the reader allocates up front.
	// Longer payloads are read in growing chunks.
	maxEagerPayload = 1 << 20
)

// RecordWriter encodes records into a bounded buffer and writes the buffer
// out whenever it fills up and at the end of every record.
type RecordWriter struct {
	w       io.Writer
	buf     bytesBuilder
	enc     *encoding.Encoder
	written int64
	records int
}

func NewRecordWriter(w io.Writer, bufferSize int) *RecordWriter {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if bufferSize < MinBufferSize {
		bufferSize = MinBufferSize
	}
	return &RecordWriter{
		w:   w,
		buf: newBytesBuilder(bufferSize),
		enc: unicode.UTF8.NewEncoder(),
	}
}

// Written returns the number of bytes handed to the underlying writer so far.
func (rw *RecordWriter) Written() int64 {
	return rw.written
}

// BufferCap returns the capacity of the internal buffer.
func (rw *RecordWriter) BufferCap() int {
	return cap(rw.buf.Buf)
}

// WriteListLength buffers the list length prefix. It goes out together with
// the first record, or on Flush.
func (rw *RecordWriter) WriteListLength(n int32) {
	rw.buf.AppendFixedInt32(n)
}

// WriteRecord encodes rec. All of its bytes have been written to the
// underlying writer when WriteRecord returns without error.
func (rw *RecordWriter) WriteRecord(rec *Record) error {
	rw.records++
	size := encodedLen(rec.Data)
	if size > math.MaxInt32 {
		return structErrf(rw.written, rw.records, "payload of %d bytes does not fit into int32", size)
	}

	if rw.buf.Free() < recordHeaderSize {
		if err := rw.Flush(); err != nil {
			return err
		}
	}
	rw.buf.AppendFixedInt32(rec.ID)
	rw.buf.AppendFixedInt32(rec.PreviousID)
	rw.buf.AppendFixedInt32(rec.NextID)
	rw.buf.AppendFixedInt32(rec.RandomID)
	rw.buf.AppendFixedInt32(int32(size))

	if err := rw.writePayload(rec.Data); err != nil {
		return err
	}
	return rw.Flush()
}

func (rw *RecordWriter) writePayload(s string) error {
	src := unsafeBytesFromString(s)
	rw.enc.Reset()
	for len(src) > 0 {
		if rw.buf.Free() < utf8.UTFMax {
			if err := rw.Flush(); err != nil {
				return err
			}
		}

		nDst, nSrc, err := rw.enc.Transform(rw.buf.FreeSpace(), src, true)
		rw.buf.Advance(nDst)
		src = src[nSrc:]

		if err != nil && err != transform.ErrShortDst {
			return fmt.Errorf("randlist: encoding payload of record %d: %w", rw.records, err)
		}
		if nDst == 0 && nSrc == 0 {
			if rw.buf.Len() == 0 {
				return fmt.Errorf("randlist: encoding payload of record %d: no progress with %d free bytes", rw.records, rw.buf.Free())
			}
			if err := rw.Flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush writes out any buffered bytes and resets the buffer, keeping its
// capacity.
func (rw *RecordWriter) Flush() error {
	if rw.buf.Len() == 0 {
		return nil
	}
	n, err := rw.w.Write(rw.buf.Buf)
	rw.written += int64(n)
	if err == nil && n != rw.buf.Len() {
		err = io.ErrShortWrite
	}
	rw.buf.Reset()
	if err != nil {
		return fmt.Errorf("randlist: write: %w", err)
	}
	return nil
}

// encodedLen returns the UTF-8 byte length of s after ill-formed bytes are
// replaced with U+FFFD, matching what the encoder transformer produces.
func encodedLen(s string) int {
	if utf8.ValidString(s) {
		return len(s)
	}
	var n int
	for _, r := range s {
		n += utf8.RuneLen(r)
	}
	return n
}

func unsafeBytesFromString(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// RecordReader decodes records from a stream, reusing one payload buffer.
type RecordReader struct {
	r       io.Reader
	buf     []byte
	hdr     [recordHeaderSize]byte
	dec     *encoding.Decoder
	off     int64
	records int
}

func NewRecordReader(r io.Reader) *RecordReader {
	return &RecordReader{
		r:   r,
		dec: unicode.UTF8.NewDecoder(),
	}
}

// Offset returns the number of bytes consumed from the stream so far.
func (rr *RecordReader) Offset() int64 {
	return rr.off
}

// Records returns the number of records read so far.
func (rr *RecordReader) Records() int {
	return rr.records
}

var headerFieldNames = [...]string{"id", "previous id", "next id", "random id", "payload length"}

// ReadListLength reads the 4-byte list length prefix.
func (rr *RecordReader) ReadListLength() (int32, error) {
	start := rr.off
	n, err := io.ReadFull(rr.r, rr.hdr[:4])
	rr.off += int64(n)
	if err != nil {
		return 0, rr.readErr(start, 0, err, "list length: got %d of 4 bytes", n)
	}
	v := int32(binary.LittleEndian.Uint32(rr.hdr[:4]))
	if v < 0 {
		return 0, dataErrf(ErrInvalidStructure, start, 0, nil, "negative list length %d", v)
	}
	return v, nil
}

// ReadRecord decodes the next record into rec.
func (rr *RecordReader) ReadRecord(rec *Record) error {
	rr.records++
	start := rr.off

	n, err := io.ReadFull(rr.r, rr.hdr[:])
	rr.off += int64(n)
	if err != nil {
		return rr.readErr(start, rr.records, err, "%s: got %d of 4 bytes", headerFieldNames[n/4], n%4)
	}
	h := rr.hdr[:]
	rec.ID = int32(binary.LittleEndian.Uint32(h[0:]))
	rec.PreviousID = int32(binary.LittleEndian.Uint32(h[4:]))
	rec.NextID = int32(binary.LittleEndian.Uint32(h[8:]))
	rec.RandomID = int32(binary.LittleEndian.Uint32(h[12:]))
	size := int32(binary.LittleEndian.Uint32(h[16:]))
	if size < 0 {
		return dataErrf(ErrInvalidStructure, start+16, rr.records, nil, "negative payload length %d", size)
	}

	payload, err := rr.readPayload(int(size))
	if err != nil {
		return err
	}
	if utf8.Valid(payload) {
		rec.Data = string(payload)
	} else {
		fixed, err := rr.dec.Bytes(payload)
		if err != nil {
			return dataErrf(ErrInvalidStructure, start+recordHeaderSize, rr.records, err, "decoding payload")
		}
		rec.Data = string(fixed)
	}
	rr.buf = rr.buf[:0]
	return nil
}

func (rr *RecordReader) readPayload(n int) ([]byte, error) {
	start := rr.off
	if n <= cap(rr.buf) || n <= maxEagerPayload {
		rr.buf = readBuffer(rr.buf, n)
		k, err := io.ReadFull(rr.r, rr.buf)
		rr.off += int64(k)
		if err != nil {
			return nil, rr.readErr(start, rr.records, err, "payload: got %d of %d bytes", k, n)
		}
		return rr.buf, nil
	}

	buf := rr.buf[:0]
	for len(buf) < n {
		if len(buf) == cap(buf) {
			c := min(n, max(2*cap(buf), len(buf)+maxEagerPayload))
			grown := make([]byte, len(buf), c)
			copy(grown, buf)
			buf = grown
		}
		k, err := io.ReadFull(rr.r, buf[len(buf):cap(buf)])
		rr.off += int64(k)
		buf = buf[:len(buf)+k]
		if err != nil {
			rr.buf = buf[:0]
			return nil, rr.readErr(start, rr.records, err, "payload: got %d of %d bytes", len(buf), n)
		}
	}
	rr.buf = buf
	return buf, nil
}

func (rr *RecordReader) readErr(off int64, record int, err error, format string, args ...any) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return dataErrf(ErrTruncated, off, record, err, format, args...)
	}
	return fmt.Errorf("randlist: read at offset %d: %w", rr.off, err)
}
