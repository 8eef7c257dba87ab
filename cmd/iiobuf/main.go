package main

import (
	"os"

	"iiobuf/cmd/iiobuf/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
