// The main package for the linktraffic executable.
package main

import (
	"github.com/JakeFAU/link-traffic-analyzer/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
