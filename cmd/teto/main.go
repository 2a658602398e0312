package main

import (
	"os"
)

func main() {
	raiseFileLimit()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
