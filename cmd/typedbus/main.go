package main

import (
	"os"

	"github.com/goclaw/typedbus/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
