package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootApp().RunContext(ctx, os.Args); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}

		log.Fatalf("newsai: %v", err)
	}
}
