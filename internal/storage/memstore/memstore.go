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

// Package memstore is an in-memory storage.RandomAccess, used for
// tests and ephemeral cores.
package memstore

import (
	"context"
	"fmt"
)

// Store is a growable in-memory byte buffer implementing
// storage.RandomAccess.
type Store struct {
	buf []byte
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{}
}

func (s *Store) ReadAt(ctx context.Context, offset, length int64) ([]byte, error) {
	if offset < 0 || length < 0 {
		return nil, fmt.Errorf("memstore: negative offset/length")
	}
	end := offset + length
	out := make([]byte, length)
	if offset >= int64(len(s.buf)) {
		return out, nil
	}
	if end > int64(len(s.buf)) {
		end = int64(len(s.buf))
	}
	copy(out, s.buf[offset:end])
	return out, nil
}

func (s *Store) WriteAt(ctx context.Context, offset int64, data []byte) error {
	if offset < 0 {
		return fmt.Errorf("memstore: negative offset")
	}
	end := offset + int64(len(data))
	if end > int64(len(s.buf)) {
		grown := make([]byte, end)
		copy(grown, s.buf)
		s.buf = grown
	}
	copy(s.buf[offset:end], data)
	return nil
}

func (s *Store) Delete(ctx context.Context, offset, length int64) error {
	if offset < 0 || length < 0 {
		return fmt.Errorf("memstore: negative offset/length")
	}
	end := offset + length
	if offset >= int64(len(s.buf)) {
		return nil
	}
	if end > int64(len(s.buf)) {
		end = int64(len(s.buf))
	}
	for i := offset; i < end; i++ {
		s.buf[i] = 0
	}
	return nil
}

func (s *Store) Truncate(ctx context.Context, length int64) error {
	if length < 0 {
		return fmt.Errorf("memstore: negative length")
	}
	if length <= int64(len(s.buf)) {
		s.buf = s.buf[:length]
		return nil
	}
	grown := make([]byte, length)
	copy(grown, s.buf)
	s.buf = grown
	return nil
}

func (s *Store) Len(ctx context.Context) (int64, error) {
	return int64(len(s.buf)), nil
}

func (s *Store) Flush(ctx context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}
