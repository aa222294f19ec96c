package main

import (
	"os"

	"github.com/bianoble/packinstall/cmd/packinstall/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
