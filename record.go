package randlist

import "fmt"

// recordHeaderSize is five little-endian int32 values:
// id, previous id, next id, random id and payload byte length.
const recordHeaderSize = 5 * 4

// Record is the flat wire form of one node. Link ids refer to other records
// of the same list; 0 means absent for PreviousID and NextID.
type Record struct {
	ID         int32
	PreviousID int32
	NextID     int32
	RandomID   int32
	Data       string
}

func (rec *Record) String() string {
	return fmt.Sprintf("#%d prev=%d next=%d random=%d data=%q", rec.ID, rec.PreviousID, rec.NextID, rec.RandomID, rec.Data)
}

// fill sets rec from node n, assigning ids for the node, its random target
// and its successor.
//
// The predecessor is looked up rather than assigned: in a nil-terminated list
// it was assigned when it was visited itself. If it still has no id, it is
// outside the visited prefix (only possible for the head of a cyclic list or
// for a list whose head has a foreign predecessor), so it gets assigned too and
// the caller's range check catches the foreign case.
func (rec *Record) fill(m *idMapper, n *Node) {
	rec.ID = m.ID(n)
	rec.RandomID = m.ID(n.Random)
	if n.Next != nil {
		rec.NextID = m.ID(n.Next)
	} else {
		rec.NextID = 0
	}
	if n.Previous != nil {
		rec.PreviousID = m.Lookup(n.Previous)
		if rec.PreviousID == 0 {
			rec.PreviousID = m.ID(n.Previous)
		}
	} else {
		rec.PreviousID = 0
	}
	rec.Data = n.Data
}
