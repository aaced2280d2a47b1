package main

import (
	"os"

	"willvault/internal/willctl"
)

func main() {
	if err := willctl.Execute(); err != nil {
		os.Exit(1)
	}
}
