package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pvzzle/airdrop/internal/app"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// the current transfer is still awaited after the first signal, a second one kills
	go func() {
		<-ctx.Done()
		cancel()
	}()

	if err := app.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			// ledger already reflects every finished record
			log.Printf("interrupted, rerun to continue with the remaining records")
			os.Exit(130)
		}
		log.Fatal(err)
	}
}
