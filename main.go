// Package main is entrypoint for the application
package main

import "meetmedia/cmd"

func main() {
	cmd.Run()
}
