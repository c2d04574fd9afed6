// The main package for the opinion-crawler executable.
package main

import (
	"github.com/JakeFAU/opinion-crawler/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
