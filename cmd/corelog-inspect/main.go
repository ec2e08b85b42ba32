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

// Command corelog-inspect opens a corelog directory and prints its
// current info.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/flatcore/corelog"
)

type stdLogger struct{}

func (stdLogger) Debugf(format string, args ...any) { log.Printf("debug: "+format, args...) }
func (stdLogger) Warnf(format string, args ...any)  { log.Printf("warn: "+format, args...) }

func main() {
	dir := flag.String("dir", "", "corelog storage directory")
	verbose := flag.Bool("v", false, "log debug/warn messages to stderr")
	flag.Parse()

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "usage: corelog-inspect -dir <path>")
		os.Exit(2)
	}

	cfg := corelog.Config{Storage: corelog.StorageConfig{Dir: *dir}}
	if *verbose {
		cfg.Logger = stdLogger{}
	}

	ctx := context.Background()
	c, err := corelog.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("open %s: %v", *dir, err)
	}
	defer c.Close(ctx)

	info, err := c.Info(ctx)
	if err != nil {
		log.Fatalf("info: %v", err)
	}
	fmt.Printf("length:            %d\n", info.Length)
	fmt.Printf("byte_length:       %d\n", info.ByteLength)
	fmt.Printf("contiguous_length: %d\n", info.ContiguousLength)
	fmt.Printf("fork:              %d\n", info.Fork)
}
