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

package corelog

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/flatcore/corelog/internal/core"
	"github.com/flatcore/corelog/internal/logcrypto"
	"github.com/flatcore/corelog/internal/storage/filestore"
	"github.com/flatcore/corelog/internal/storage/memstore"
)

// Logger is the minimal leveled logging sink a Core writes to. A nil
// Logger in Config is replaced with a no-op implementation; there is
// no global/package-level logger anywhere in this module.
type Logger = core.Logger

// KeyPair re-exports the log identity type so callers never need to
// import the internal crypto package directly.
type KeyPair = logcrypto.KeyPair

// GenerateKeyPair creates a new random writable keypair.
func GenerateKeyPair() (*KeyPair, error) {
	return logcrypto.GenerateKeyPair()
}

// StorageConfig selects where a Core's five logical regions
// (oplog header, oplog entries, tree, data, bitfield) live: entirely
// in memory, or as files inside a directory on disk.
type StorageConfig struct {
	// InMemory, if true, backs every region with a growable
	// in-memory buffer; Dir is ignored.
	InMemory bool
	// Dir is the directory (created if necessary) holding the five
	// region files when InMemory is false.
	Dir string
}

// Config is the single build-time configuration struct threaded
// through Open; there is no package-level mutable state.
type Config struct {
	Storage   StorageConfig
	Logger    Logger
	CacheSize int
	KeyPair   *KeyPair
}

const (
	fileHeader   = "oplog-header"
	fileEntries  = "oplog-entries"
	fileTree     = "tree"
	fileData     = "data"
	fileBitfield = "bitfield"
)

func (cfg Config) toCoreConfig() (core.Config, error) {
	cc := core.Config{
		Logger:    cfg.Logger,
		CacheSize: cfg.CacheSize,
		KeyPair:   cfg.KeyPair,
	}

	if cfg.Storage.InMemory {
		cc.HeaderStore = memstore.New()
		cc.EntryStore = memstore.New()
		cc.TreeStore = memstore.New()
		cc.DataStore = memstore.New()
		cc.BitfieldStore = memstore.New()
		return cc, nil
	}

	if cfg.Storage.Dir == "" {
		return core.Config{}, fmt.Errorf("corelog: disk storage requires a directory")
	}
	if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
		return core.Config{}, fmt.Errorf("corelog: create storage directory: %w", err)
	}

	open := func(name string) (*filestore.Store, error) {
		return filestore.Open(filepath.Join(cfg.Storage.Dir, name))
	}
	var err error
	if cc.HeaderStore, err = open(fileHeader); err != nil {
		return core.Config{}, err
	}
	if cc.EntryStore, err = open(fileEntries); err != nil {
		return core.Config{}, err
	}
	if cc.TreeStore, err = open(fileTree); err != nil {
		return core.Config{}, err
	}
	if cc.DataStore, err = open(fileData); err != nil {
		return core.Config{}, err
	}
	if cc.BitfieldStore, err = open(fileBitfield); err != nil {
		return core.Config{}, err
	}
	return cc, nil
}
