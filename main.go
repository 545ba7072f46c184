package main

import (
	"os"

	"github.com/Bradley1112/nurture/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
