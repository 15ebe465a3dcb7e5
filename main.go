package main

import (
	"os"

	"github.com/spigell/skills-extractor/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
