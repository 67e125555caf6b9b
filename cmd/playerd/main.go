// Package main is the entry point for playerd, a headless playback session
// daemon and its command-line clients.
package main

import "github.com/austinkregel/local-media/playerd/internal/cli"

func main() {
	cli.Execute()
}
