package randlist

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
)

type Options struct {
	Context    context.Context
	BufferSize int // codec buffer size, DefaultBufferSize if zero
	Logger     *slog.Logger
	Verbose    bool
}

// Serializer converts lists to and from the wire format and makes deep
// copies. It holds only configuration and is safe for concurrent use; every
// call allocates its own id mapper and codec buffer.
type Serializer struct {
	context    context.Context
	bufferSize int
	logger     *slog.Logger
	verbose    bool
}

func New(o Options) *Serializer {
	if o.Context == nil {
		o.Context = context.Background()
	}
	if o.BufferSize == 0 {
		o.BufferSize = DefaultBufferSize
	}
	if o.BufferSize < MinBufferSize {
		o.BufferSize = MinBufferSize
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return &Serializer{
		context:    o.Context,
		bufferSize: o.BufferSize,
		logger:     o.Logger,
		verbose:    o.Verbose,
	}
}

var defaultSerializer = New(Options{})

// Serialize writes the list starting at head to w using default options.
func Serialize(head *Node, w io.Writer) error {
	return defaultSerializer.Serialize(head, w)
}

// Deserialize reads a list from r using default options.
func Deserialize(r io.Reader) (*Node, error) {
	return defaultSerializer.Deserialize(r)
}

// DeepCopy returns an independent copy of the list starting at head.
func DeepCopy(head *Node) *Node {
	return defaultSerializer.DeepCopy(head)
}

type flusher interface {
	Flush() error
}

// Serialize writes the length prefix followed by one record per node, in Next
// order starting at head. If w has a Flush method, it is called at the end.
// A nil head is written as an empty list.
func (s *Serializer) Serialize(head *Node, w io.Writer) error {
	count := countNodes(head)
	if count > math.MaxInt32 {
		return structErrf(0, 0, "list of %d nodes does not fit into int32", count)
	}

	rw := NewRecordWriter(w, s.bufferSize)
	rw.WriteListLength(int32(count))

	m := newIDMapper(count)
	var rec Record
	cur := head
	for pos := 1; pos <= count; pos++ {
		if cur.Random == nil {
			return structErrf(rw.Written(), pos, "random reference is nil")
		}
		rec.fill(m, cur)
		if m.Assigned() > count {
			return structErrf(rw.Written(), pos, "references a node outside the list of %d nodes", count)
		}
		if err := rw.WriteRecord(&rec); err != nil {
			return err
		}
		cur = cur.Next
	}

	if err := rw.Flush(); err != nil {
		return err
	}
	if f, ok := w.(flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("randlist: flush: %w", err)
		}
	}

	if s.verbose {
		s.logger.LogAttrs(s.context, slog.LevelDebug, "randlist: serialized", slog.Int("nodes", count), slog.Int64("bytes", rw.Written()), slog.Int("buf", rw.BufferCap()))
	}
	return nil
}

// Deserialize reads a list written by Serialize and returns its head. Ids
// must be a permutation of 1..N and all link ids must be in range, otherwise
// an ErrInvalidStructure error is returned. An empty list yields a nil head.
func (s *Serializer) Deserialize(r io.Reader) (*Node, error) {
	rr := NewRecordReader(r)
	count32, err := rr.ReadListLength()
	if err != nil {
		return nil, err
	}
	count := int(count32)
	if count == 0 {
		return nil, nil
	}

	// Capacity grows with the records actually read, so a bogus prefix on a
	// short stream fails with ErrTruncated instead of a huge allocation.
	recs := make([]Record, 0, min(count, 1024))
	offs := make([]int64, 0, min(count, 1024))
	for range count {
		off := rr.Offset()
		var rec Record
		if err := rr.ReadRecord(&rec); err != nil {
			return nil, err
		}
		if err := checkRecord(&rec, count32, off, len(recs)+1); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
		offs = append(offs, off)
	}

	nodes := make([]*Node, count)
	for i := range recs {
		rec := &recs[i]
		if nodes[rec.ID-1] != nil {
			return nil, dataErrf(ErrInvalidStructure, offs[i], i+1, nil, "duplicate id %d", rec.ID)
		}
		nodes[rec.ID-1] = &Node{Data: rec.Data}
	}

	for i := range recs {
		rec := &recs[i]
		node := nodes[rec.ID-1]
		node.Random = nodes[rec.RandomID-1]
		if rec.PreviousID != 0 {
			node.Previous = nodes[rec.PreviousID-1]
		}
		if rec.NextID != 0 {
			node.Next = nodes[rec.NextID-1]
		}
	}

	if s.verbose {
		s.logger.LogAttrs(s.context, slog.LevelDebug, "randlist: deserialized", slog.Int("nodes", count), slog.Int64("bytes", rr.Offset()))
	}
	return nodes[0], nil
}

func checkRecord(rec *Record, count int32, off int64, pos int) error {
	check := func(id, lo int32, field string) error {
		if id < lo || id > count {
			return dataErrf(ErrInvalidStructure, off, pos, nil, "%s %d out of range %d..%d", field, id, lo, count)
		}
		return nil
	}
	if err := check(rec.ID, 1, "id"); err != nil {
		return err
	}
	if err := check(rec.PreviousID, 0, "previous id"); err != nil {
		return err
	}
	if err := check(rec.NextID, 0, "next id"); err != nil {
		return err
	}
	return check(rec.RandomID, 1, "random id")
}

// DeepCopy returns a copy of the list starting at head that shares no nodes
// with the original. Next, Previous and Random links of the copy mirror the
// original by position.
//
// A single pass along Next is enough: copies are created on first encounter,
// whether the node is first seen as the current node, as a successor or as a
// random target.
func (s *Serializer) DeepCopy(head *Node) *Node {
	count := countNodes(head)
	if count == 0 {
		return nil
	}

	copies := make(map[*Node]*Node, count)
	copyOf := func(orig *Node) *Node {
		if orig == nil {
			return nil
		}
		if c, ok := copies[orig]; ok {
			return c
		}
		c := &Node{Data: orig.Data}
		copies[orig] = c
		return c
	}

	cur := head
	for range count {
		c := copyOf(cur)
		if cur.Next != nil {
			next := copyOf(cur.Next)
			c.Next = next
			next.Previous = c
		}
		c.Random = copyOf(cur.Random)
		cur = cur.Next
	}

	if s.verbose {
		s.logger.LogAttrs(s.context, slog.LevelDebug, "randlist: copied", slog.Int("nodes", count))
	}
	return copies[head]
}
