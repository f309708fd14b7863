// The main package for the rosterwatch executable.
package main

import "github.com/oddsflow/rosterwatch/cmd"

func main() {
	cmd.Execute()
}
