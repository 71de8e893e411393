// Package main is the entry point for the distfuzz CLI.
package main

import "distfuzz.dev/pkg/distfuzz/cmd"

func main() {
	cmd.Execute()
}
