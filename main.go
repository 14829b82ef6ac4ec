package main

import (
	"os"

	"github.com/ternlund/lockguard/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
