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

package merkletree

// Changeset is a prepared, uncommitted mutation to the tree engine's
// state: it is built by Append or Truncate, applied by Commit, and
// discarded (never applied) if the caller chooses not to commit it.
type Changeset struct {
	// Start is the length the tree had before this changeset (for an
	// append) or is truncating down from.
	Start uint64

	NewLength     uint64
	NewByteLength uint64
	NewFork       uint64
	NewRoots      []Node
	Signature     []byte

	// NewNodes holds every leaf and interior node created while
	// building this changeset (append only; a truncate creates no
	// new nodes, only drops some from the active root set).
	NewNodes []Node
}

// AddedLength is the number of leaves this changeset appends (zero
// for a truncate changeset).
func (c *Changeset) AddedLength() uint64 {
	if c.NewLength <= c.Start {
		return 0
	}
	return c.NewLength - c.Start
}
