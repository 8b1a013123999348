package main

import (
	"os"

	"github.com/routrace/mapgen/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
