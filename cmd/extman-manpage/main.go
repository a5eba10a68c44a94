package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra/doc"

	"github.com/arthur-debert/extman/cmd/extman"
	"github.com/arthur-debert/extman/internal/version"
)

func main() {
	rootCmd := extman.NewRootCmd()

	header := &doc.GenManHeader{
		Title:   "EXTMAN",
		Section: "1",
		Source:  "extman " + version.Version,
		Manual:  "extman manual",
	}

	err := doc.GenMan(rootCmd, header, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating man page: %v\n", err)
		os.Exit(1)
	}
}
