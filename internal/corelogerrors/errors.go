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

// Package corelogerrors holds the sentinel error values shared across
// the tree engine, oplog, storage, and core facade.
package corelogerrors

import "errors"

var (
	// ErrInvalidSignature: signature/public-key mismatch.
	ErrInvalidSignature = errors.New("corelog: invalid signature")
	// ErrBadHash: reconstructed hash does not match the expected one
	// during verification.
	ErrBadHash = errors.New("corelog: bad hash")
	// ErrMalformedEntry: bytes fail structural decode or CRC.
	ErrMalformedEntry = errors.New("corelog: malformed entry")
	// ErrMissingNode: a tree node needed to satisfy a request is not
	// locally present.
	ErrMissingNode = errors.New("corelog: missing node")
	// ErrMissingBlock: a block's data is not locally present.
	ErrMissingBlock = errors.New("corelog: missing block")
	// ErrOutOfRange: index beyond length.
	ErrOutOfRange = errors.New("corelog: index out of range")
	// ErrForkMismatch: an upgrade or proof pertains to a different
	// fork id than the local state.
	ErrForkMismatch = errors.New("corelog: fork mismatch")
	// ErrPermissionDenied: write attempted without a secret key.
	ErrPermissionDenied = errors.New("corelog: permission denied, no secret key")
	// ErrClosed: operation attempted after Close.
	ErrClosed = errors.New("corelog: core is closed")
	// ErrInconsistent: a proof's indices/sizes do not internally add up.
	ErrInconsistent = errors.New("corelog: inconsistent proof")
)
