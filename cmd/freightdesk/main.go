package main

import (
	"os"

	"github.com/freightdesk/freightdesk/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
