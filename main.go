// The main package for the catalog-ingest executable.
package main

import (
	"catalog-ingest/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
