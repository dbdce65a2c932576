// The main package for the newopenings executable.
package main

import (
	"github.com/JakeFAU/newopenings-crawler/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
