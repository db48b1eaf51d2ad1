package main

import (
	"os"

	"arithmetic-practice-service/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
