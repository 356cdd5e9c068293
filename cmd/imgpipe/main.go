// Command imgpipe applies a pipeline descriptor to image files.
//
//	imgpipe --preset web.json photos/
//	imgpipe --width 1024 --format jpg --quality 80 a.jpg b.png
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}
