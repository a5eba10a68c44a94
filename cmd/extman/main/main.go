package main

import (
	"fmt"
	"os"

	"github.com/arthur-debert/extman/cmd/extman"
	"github.com/arthur-debert/extman/pkg/style"
)

func main() {
	rootCmd := extman.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, style.NewRenderer(style.DetectFormat(os.Stderr)).RenderError(err))
		os.Exit(1)
	}
}
