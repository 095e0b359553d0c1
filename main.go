package main

import (
	"os"

	"github.com/evhome/carnet-hass/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
