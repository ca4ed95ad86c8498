package main

import (
	"os"

	"github.com/ConserveLee/huntbot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
