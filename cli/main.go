// Command bdb archives radar files and queries them by attribute.
package main

import (
	"os"

	"github.com/baltrad/bdb-go/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
