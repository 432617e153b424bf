package main

import (
	"os"

	"github.com/vibeboard/vibeboard/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
