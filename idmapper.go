package randlist

// idMapper assigns dense 1-based ids to nodes by reference, in order of first
// request. It lives for exactly one Serialize call.
type idMapper struct {
	ids  map[*Node]int32
	next int32
}

func newIDMapper(size int) *idMapper {
	return &idMapper{
		ids:  make(map[*Node]int32, size),
		next: 1,
	}
}

// ID returns the id of n, assigning the next unused one if n hasn't been seen.
func (m *idMapper) ID(n *Node) int32 {
	if id, ok := m.ids[n]; ok {
		return id
	}
	id := m.next
	m.ids[n] = id
	m.next++
	return id
}

// Lookup returns the id of n, or 0 if none has been assigned yet.
func (m *idMapper) Lookup(n *Node) int32 {
	return m.ids[n]
}

// Assigned returns the number of ids handed out so far.
func (m *idMapper) Assigned() int {
	return int(m.next - 1)
}
