package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(context.Background()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
