package allocator

import "unsafe"

// freeList is a singly linked LIFO stack of blocks belonging to one size
// class. A free block's first machine word holds the link to the next free
// block (or nil) — the union-coded representation of §3: the same memory
// is a link pointer while free and opaque caller data while allocated, with
// no other header. len tracks depth for Stats without walking the chain.
type freeList struct {
	head unsafe.Pointer
	len  int
}

// push prepends block to the list. Precondition: block's size equals this
// class's size and block is not already linked elsewhere. O(1).
func (fl *freeList) push(block unsafe.Pointer) {
	*(*unsafe.Pointer)(block) = fl.head
	fl.head = block
	fl.len++
}

// pop removes and returns the head of the list, or nil if empty. The nil
// check happens before any dereference of the popped block — one revision
// of the original C source reads the block's payload before checking for
// an empty list, which crashes; this does not repeat that bug (Open
// Question 2).
func (fl *freeList) pop() unsafe.Pointer {
	if fl.head == nil {
		return nil
	}
	block := fl.head
	fl.head = *(*unsafe.Pointer)(block)
	fl.len--
	return block
}
