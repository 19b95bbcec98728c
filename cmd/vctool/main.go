// Command vctool signs, verifies and converts verifiable credentials.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/pilacorp/go-vc-signing/cmd/vctool/vctoolcmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := vctoolcmd.Cmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
