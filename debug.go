package randlist

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

var dumpSep = strings.Repeat("-", 60)

// Dump describes the list starting at head, one node per line in Next order.
// Links are printed as 1-based positions; "-" means nil and "?" means a node
// outside the list.
func Dump(head *Node) string {
	pos := make(map[*Node]int)
	for i, n := range head.All() {
		pos[n] = i + 1
	}
	ref := func(n *Node) string {
		if n == nil {
			return "-"
		}
		if p, ok := pos[n]; ok {
			return fmt.Sprint(p)
		}
		return "?"
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "list (%d nodes)\n", len(pos))
	for i, n := range head.All() {
		fmt.Fprintf(&buf, "%d: prev=%s next=%s random=%s data=%q\n", i+1, ref(n.Previous), ref(n.Next), ref(n.Random), truncateForDump(n.Data))
	}
	return buf.String()
}

// DumpStream decodes a serialized list from r and describes its records
// without linking nodes. On a decoding error the records read so far are
// returned along with the error.
func DumpStream(r io.Reader) (string, error) {
	var buf strings.Builder
	rr := NewRecordReader(r)
	n, err := rr.ReadListLength()
	if err != nil {
		return buf.String(), err
	}
	fmt.Fprintf(&buf, "stream (%d records)\n", n)
	fmt.Fprintln(&buf, dumpSep)

	var rec Record
	for range n {
		off := rr.Offset()
		if err := rr.ReadRecord(&rec); err != nil {
			return buf.String(), err
		}
		rec.Data = truncateForDump(rec.Data)
		fmt.Fprintf(&buf, "@%08x %v\n", off, &rec)
	}
	fmt.Fprintln(&buf, dumpSep)
	fmt.Fprintf(&buf, "%d bytes\n", rr.Offset())
	return buf.String(), nil
}

const maxDumpData = 64

func truncateForDump(s string) string {
	if len(s) <= maxDumpData {
		return s
	}
	cut := maxDumpData
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return fmt.Sprintf("%s...(%d bytes)", s[:cut], len(s))
}

