package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "bedrock-gateway: interrupted")
			return
		}
		fmt.Fprintf(os.Stderr, "bedrock-gateway: %v\n", err)
		os.Exit(1)
	}
}
