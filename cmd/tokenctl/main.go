package main

import (
	"os"
)

func main() {
	if err := newRootCmd(loadToolkit).Execute(); err != nil {
		os.Exit(1)
	}
}
