package main

import (
	"os"

	"github.com/ajroetker/usmgemm/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
