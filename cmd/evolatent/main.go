// Command evolatent runs an interactive latent-evolution session one step
// per invocation.
//
//	evolatent new --prompt "a lighthouse at dusk"
//	evolatent evolve 20240501_123045-1a2b3c4d --select 1,3
//	evolatent regional 20240501_123045-1a2b3c4d --region 2=128,128,384,384
//	evolatent inspect 20240501_123045-1a2b3c4d
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
