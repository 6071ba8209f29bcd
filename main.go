package main

import (
	"os"

	"github.com/spigell/resume-intake/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
