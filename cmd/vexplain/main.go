package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kailas-cloud/vexplain/internal/domain"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(report(err))
	}
}

// report prints err with its class and returns the process exit code.
func report(err error) int {
	var ue *usageError
	if errors.As(err, &ue) {
		fmt.Fprintln(os.Stderr, "usage error:", ue.err)
		return 2
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", domain.ErrorClass(err), err)
	return 1
}
