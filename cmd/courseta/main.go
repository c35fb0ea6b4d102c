// Command courseta is the entry point for the course teaching assistant.
// It ingests course files and forum posts into a local content store and
// serves a question-answering API over the indexed corpus.
package main

import (
	"fmt"
	"os"

	"github.com/edurag/courseta-go/cmd/courseta/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
