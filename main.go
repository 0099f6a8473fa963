package main

import (
	"fmt"
	"os"

	"github.com/psg-community/psgweb/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "psgweb: %v\n", err)
		os.Exit(1)
	}
}
