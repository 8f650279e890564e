// Package main is the entry point for the pcapture packet capture CLI.
package main

import (
	"os"

	"firestige.xyz/pcapture/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
