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

// Package filestore is an on-disk storage.RandomAccess backed by a
// single *os.File, relying on the OS to sparse-allocate holes left by
// Truncate growing the file or by a write past the current end. Delete
// writes explicit zero bytes over its region.
package filestore

import (
	"context"
	"errors"
	"io"
	"os"
)

// Store wraps one file on disk.
type Store struct {
	f *os.File
}

// Open opens (creating if necessary) the file at path for read/write
// random access.
func Open(path string) (*Store, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, err
	}
	return &Store{f: f}, nil
}

func (s *Store) ReadAt(ctx context.Context, offset, length int64) ([]byte, error) {
	out := make([]byte, length)
	_, err := s.f.ReadAt(out, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return out, nil
}

func (s *Store) WriteAt(ctx context.Context, offset int64, data []byte) error {
	_, err := s.f.WriteAt(data, offset)
	return err
}

func (s *Store) Delete(ctx context.Context, offset, length int64) error {
	zeros := make([]byte, length)
	_, err := s.f.WriteAt(zeros, offset)
	return err
}

func (s *Store) Truncate(ctx context.Context, length int64) error {
	return s.f.Truncate(length)
}

func (s *Store) Len(ctx context.Context) (int64, error) {
	fi, err := s.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (s *Store) Flush(ctx context.Context) error {
	return s.f.Sync()
}

func (s *Store) Close() error {
	return s.f.Close()
}

