package main

import (
	"os"

	"github.com/apporte/workflow/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
