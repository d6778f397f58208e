package randlist

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated means the input ended before a length prefix, an integer
	// field or a declared payload was complete.
	ErrTruncated = errors.New("truncated input")

	// ErrInvalidStructure means the ids or links of a list do not describe
	// a well-formed list: ids that are not a permutation of 1..N, link ids
	// out of range, negative lengths, nil random references, or references
	// to nodes outside the list.
	ErrInvalidStructure = errors.New("invalid structure")
)

// DataError describes a failure to decode or encode a particular record.
// It unwraps to both its Kind (one of the sentinels above) and Err.
type DataError struct {
	Kind   error
	Off    int64
	Record int // 1-based position in the stream, 0 for the length prefix
	Err    error
	Msg    string
}

func dataErrf(kind error, off int64, record int, err error, format string, args ...any) error {
	return &DataError{kind, off, record, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func (e *DataError) Error() string {
	var where string
	if e.Record == 0 {
		where = "list header"
	} else {
		where = fmt.Sprintf("record %d", e.Record)
	}
	if e.Err != nil {
		return fmt.Sprintf("randlist: %v: %s at offset %d: %s: %v", e.Kind, where, e.Off, e.Msg, e.Err)
	} else {
		return fmt.Sprintf("randlist: %v: %s at offset %d: %s", e.Kind, where, e.Off, e.Msg)
	}
}

// structErrf reports an in-memory structural problem found while encoding.
func structErrf(off int64, pos int, format string, args ...any) error {
	return &DataError{Kind: ErrInvalidStructure, Off: off, Record: pos, Msg: fmt.Sprintf(format, args...)}
}
