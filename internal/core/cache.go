// This is free and unencumbered software released into the public domain.
//
// Anyone is free to copy, modify, publish, use, compile, sell, or
// distribute this software, either in source code form or as a compiled
// binary, for any purpose, commercial or non-commercial, and by any
// means.
//
// In jurisdictions that recognize copyright laws, the author or authors
// of this software dedicate any and all copyright interest in the
// software to the public domain. We make this dedication for the benefit
// of the public at large and to the detriment of our heirs and
// successors. We intend this dedication to be an overt act of
// relinquishment in perpetuity of all present and future rights to this
// software under copyright law.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
// MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
// IN NO EVENT SHALL THE AUTHORS BE LIABLE FOR ANY CLAIM, DAMAGES OR
// OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE,
// ARISING FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.
//
// For more information, please refer to <https://unlicense.org>

package core

import (
	"sync"

	"github.com/flatcore/corelog/internal/merkletree"
)

// nodeLRUNode is a doubly-linked list node for the LRU eviction list.
type nodeLRUNode struct {
	index uint64
	node  merkletree.Node
	prev  *nodeLRUNode
	next  *nodeLRUNode
}

// nodeCache is a bounded, thread-safe read-through cache of tree
// nodes keyed by flat-tree index. The core facade is already
// serialized by its own lock, but the cache carries its own mutex so
// it remains safe to use or test standalone.
type nodeCache struct {
	mu       sync.Mutex
	capacity int
	items    map[uint64]*nodeLRUNode
	head     *nodeLRUNode
	tail     *nodeLRUNode
}

// newNodeCache returns a cache holding at most capacity nodes. A
// non-positive capacity disables caching: Get always misses and Put
// is a no-op.
func newNodeCache(capacity int) *nodeCache {
	return &nodeCache{
		capacity: capacity,
		items:    make(map[uint64]*nodeLRUNode),
	}
}

// Get returns the cached node at index, promoting it to MRU.
func (c *nodeCache) Get(index uint64) (merkletree.Node, bool) {
	if c.capacity <= 0 {
		return merkletree.Node{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.items[index]
	if !ok {
		return merkletree.Node{}, false
	}
	c.moveToHead(n)
	return n.node, true
}

// Put inserts or updates the cached node at index, evicting the LRU
// entry if the cache is now over capacity.
func (c *nodeCache) Put(index uint64, node merkletree.Node) {
	if c.capacity <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.items[index]; ok {
		existing.node = node
		c.moveToHead(existing)
		return
	}
	n := &nodeLRUNode{index: index, node: node}
	c.items[index] = n
	c.pushHead(n)
	if len(c.items) > c.capacity {
		c.evictTail()
	}
}

// Invalidate drops a single cached entry, used when a truncate
// removes the node it used to represent.
func (c *nodeCache) Invalidate(index uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.items[index]; ok {
		c.removeNode(n)
		delete(c.items, index)
	}
}

// InvalidateFrom drops every cached node whose flat index is >= from,
// used after a truncate so stale nodes from the discarded suffix can
// never be served again.
func (c *nodeCache) InvalidateFrom(from uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var stale []uint64
	for idx := range c.items {
		if idx >= from {
			stale = append(stale, idx)
		}
	}
	for _, idx := range stale {
		c.removeNode(c.items[idx])
		delete(c.items, idx)
	}
}

// Clear empties the cache entirely.
func (c *nodeCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[uint64]*nodeLRUNode)
	c.head = nil
	c.tail = nil
}

// Len reports the number of entries currently cached.
func (c *nodeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// --- internal linked-list operations (caller must hold c.mu) ---

func (c *nodeCache) pushHead(n *nodeLRUNode) {
	n.prev = nil
	n.next = c.head
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}
}

func (c *nodeCache) removeNode(n *nodeLRUNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		c.tail = n.prev
	}
	n.prev = nil
	n.next = nil
}

func (c *nodeCache) moveToHead(n *nodeLRUNode) {
	if c.head == n {
		return
	}
	c.removeNode(n)
	c.pushHead(n)
}

func (c *nodeCache) evictTail() {
	if c.tail == nil {
		return
	}
	evicted := c.tail
	c.removeNode(evicted)
	delete(c.items, evicted.index)
}
