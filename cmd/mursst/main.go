package main

import (
	"github.com/developmentseed/mursst-icechunk-updater/cmd/mursst/cmd"
)

func main() {
	cmd.Execute()
}
