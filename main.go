package main

import (
	"os"

	"github.com/ackio/ackd/servercli"
)

func main() {
	if err := servercli.Execute(); err != nil {
		os.Exit(1)
	}
}
