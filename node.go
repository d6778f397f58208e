package randlist

import "iter"

// Node is an element of a doubly-linked list whose nodes also point to an
// arbitrary node of the same list via Random.
//
// Random must be non-nil for every node reachable from the head. It may point
// to the node itself, to an earlier node or to a later one.
type Node struct {
	Data     string
	Next     *Node
	Previous *Node
	Random   *Node
}

// Len returns the number of distinct nodes reachable from n via Next.
// A cyclic Next chain is counted once around the cycle.
func (n *Node) Len() int {
	return countNodes(n)
}

// All iterates over the distinct nodes reachable from n via Next, yielding
// each node's 0-based position.
func (n *Node) All() iter.Seq2[int, *Node] {
	return func(yield func(int, *Node) bool) {
		count := countNodes(n)
		cur := n
		for i := range count {
			if !yield(i, cur) {
				return
			}
			cur = cur.Next
		}
	}
}

// countNodes uses Floyd's cycle detection so that both nil-terminated and
// cyclic Next chains are counted without extra memory.
func countNodes(head *Node) int {
	if head == nil {
		return 0
	}
	slow, fast := head, head
	for fast != nil && fast.Next != nil {
		slow = slow.Next
		fast = fast.Next.Next
		if slow == fast {
			return cyclicLen(head, slow)
		}
	}

	n := 0
	for cur := head; cur != nil; cur = cur.Next {
		n++
	}
	return n
}

// cyclicLen returns tail length + cycle length given a meeting point inside
// the cycle.
func cyclicLen(head, meet *Node) int {
	cycle := 1
	for cur := meet.Next; cur != meet; cur = cur.Next {
		cycle++
	}

	tail := 0
	a, b := head, meet
	for a != b {
		a = a.Next
		b = b.Next
		tail++
	}
	return tail + cycle
}
