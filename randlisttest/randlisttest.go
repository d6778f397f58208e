// Package randlisttest provides helpers for testing code that builds,
// serializes or copies random-reference lists.
package randlisttest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/andreyvit/randlist"
)

// Build returns the head of a nil-terminated list with the given payloads.
// random[i] is the 0-based position of node i's random target.
func Build(data []string, random []int) *randlist.Node {
	if len(data) != len(random) {
		panic(fmt.Sprintf("Build: %d payloads, %d random targets", len(data), len(random)))
	}
	nodes := Nodes(data)
	for i, n := range nodes {
		n.Random = nodes[random[i]]
	}
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// BuildCyclic is like Build, but the last node's Next points to the node at
// position loop, and that node's Previous points back to the last one.
func BuildCyclic(data []string, random []int, loop int) *randlist.Node {
	head := Build(data, random)
	nodes := Collect(head)
	last := nodes[len(nodes)-1]
	last.Next = nodes[loop]
	nodes[loop].Previous = last
	return head
}

// Nodes returns linked nodes without random references.
func Nodes(data []string) []*randlist.Node {
	nodes := make([]*randlist.Node, len(data))
	for i, d := range data {
		nodes[i] = &randlist.Node{Data: d}
		if i > 0 {
			nodes[i].Previous = nodes[i-1]
			nodes[i-1].Next = nodes[i]
		}
	}
	return nodes
}

// Collect returns the distinct nodes reachable from head via Next.
func Collect(head *randlist.Node) []*randlist.Node {
	var nodes []*randlist.Node
	for _, n := range head.All() {
		nodes = append(nodes, n)
	}
	return nodes
}

// Topology is the position-based shape of a list. Links hold 0-based
// positions, -1 for nil and -2 for a node outside the list.
type Topology struct {
	Data     []string
	Previous []int
	Next     []int
	Random   []int
}

func TopologyOf(head *randlist.Node) Topology {
	nodes := Collect(head)
	pos := make(map[*randlist.Node]int, len(nodes))
	for i, n := range nodes {
		pos[n] = i
	}
	ref := func(n *randlist.Node) int {
		if n == nil {
			return -1
		}
		if p, ok := pos[n]; ok {
			return p
		}
		return -2
	}

	var t Topology
	for _, n := range nodes {
		t.Data = append(t.Data, n.Data)
		t.Previous = append(t.Previous, ref(n.Previous))
		t.Next = append(t.Next, ref(n.Next))
		t.Random = append(t.Random, ref(n.Random))
	}
	return t
}

// SameTopology reports an error unless both lists have the same payloads and
// the same links by position.
func SameTopology(t testing.TB, a, e *randlist.Node) bool {
	at, et := TopologyOf(a), TopologyOf(e)
	if !reflect.DeepEqual(at, et) {
		t.Helper()
		t.Errorf("** got:\n%v\nwanted:\n%v", randlist.Dump(a), randlist.Dump(e))
		return false
	}
	return true
}

// Disjoint reports an error if any node of a is also a node of b.
func Disjoint(t testing.TB, a, b *randlist.Node) bool {
	seen := make(map[*randlist.Node]bool)
	for _, n := range Collect(b) {
		seen[n] = true
		if n.Random != nil {
			seen[n.Random] = true
		}
	}
	for i, n := range Collect(a) {
		if seen[n] || (n.Random != nil && seen[n.Random]) {
			t.Helper()
			t.Errorf("** node at position %d (%q) is shared", i, n.Data)
			return false
		}
	}
	return true
}

// Expand converts a compact hex spec into bytes.
//
// Elements are separated by whitespace; a slash starts a comment that lasts
// until the end of the element. Elements are hex bytes, optionally with
// underscores; 'text for literal text; #123 for an int32 in little-endian
// order; a trailing ".." pads the element with zero bytes to 4 bytes;
// a trailing *N repeats the element N times.
func Expand(specs ...string) []byte {
	var b []byte
	for _, spec := range specs {
		for _, elem := range strings.Fields(spec) {
			base, _, _ := strings.Cut(elem, "/") // comment
			if base == "" {
				continue
			}

			base, repStr, _ := strings.Cut(base, "*")

			rep := 1
			if repStr != "" {
				var err error
				rep, err = strconv.Atoi(repStr)
				if err != nil {
					panic(fmt.Sprintf("invalid repeat count %q in element %q", repStr, elem))
				}
			}

			base, right, padTo4 := strings.Cut(base, "..")

			baseBytes, err := appendHexDecoding(nil, base)
			if err != nil {
				panic(fmt.Errorf("%w in element %q", err, elem))
			}

			rightBytes, err := appendHexDecoding(nil, right)
			if err != nil {
				panic(fmt.Errorf("%w in element %q", err, elem))
			}

			for range rep {
				b = append(b, baseBytes...)

				n := len(baseBytes) + len(rightBytes)
				if padTo4 && n < 4 {
					for range 4 - n {
						b = append(b, 0)
					}
				}

				b = append(b, rightBytes...)
			}
		}
	}
	return b
}

func appendHexDecoding(data []byte, hex string) ([]byte, error) {
	const none byte = 0xFF

	if decimal, ok := strings.CutPrefix(hex, "#"); ok {
		v, err := strconv.ParseInt(decimal, 10, 32)
		if err != nil {
			return nil, err
		}
		return binary.LittleEndian.AppendUint32(data, uint32(int32(v))), nil
	} else if alpha, ok := strings.CutPrefix(hex, "'"); ok {
		return append(data, alpha...), nil
	}

	prev := none
	for _, b := range []byte(hex) {
		var half byte
		switch b {
		case '_', ' ':
			if prev != none {
				data = append(data, prev)
				prev = none
			}
			continue
		case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
			half = b - '0'
		case 'a', 'b', 'c', 'd', 'e', 'f':
			half = b - 'a' + 10
		case 'A', 'B', 'C', 'D', 'E', 'F':
			half = b - 'A' + 10
		default:
			return nil, fmt.Errorf("invalid char '%c'", b)
		}
		if prev == none {
			prev = half
		} else {
			data = append(data, prev<<4|half)
			prev = none
		}
	}
	if prev != none {
		data = append(data, prev)
	}
	return data, nil
}

func HexDump(b []byte, highlightOff int) string {
	var buf strings.Builder
	var off int
	n := len(b)
	for {
		fmt.Fprintf(&buf, "%08x", off)
		if off >= n {
			buf.WriteByte('\n')
			break
		}
		buf.WriteByte(' ')
		for i := range 8 {
			if off+i >= n {
				buf.WriteString("   ")
			} else {
				if highlightOff >= 0 && off+i == highlightOff {
					buf.WriteByte('>')
				} else {
					buf.WriteByte(' ')
				}
				fmt.Fprintf(&buf, "%02x", b[off+i])
			}
		}
		buf.WriteString("  |")
		for i := range 8 {
			if off+i < n {
				v := b[off+i]
				if v >= 32 && v <= 126 {
					buf.WriteByte(v)
				} else {
					buf.WriteByte('.')
				}
			}
		}
		off += 8
		buf.WriteString("|\n")
		if off >= n {
			break
		}
	}
	return buf.String()
}

func BytesEq(t testing.TB, a, e []byte) bool {
	if !bytes.Equal(a, e) {
		an, en := len(a), len(e)
		off := min(an, en)
		for i := range min(an, en) {
			if a[i] != e[i] {
				off = i
				break
			}
		}

		t.Helper()
		t.Errorf("** got:\n%v\nwanted:\n%v\nfirst difference offset: 0x%x (%d)", HexDump(a, off), HexDump(e, off), off, off)
		return false
	}
	return true
}
