package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/law-makers/jobcrawl/internal/cli"
)

func main() {
	// The first interrupt cancels the run so records collected so far are
	// flushed; a second one kills the process.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()

	code := cli.Execute(ctx)
	stop()
	os.Exit(code)
}
