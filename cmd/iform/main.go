package main

import (
	"fmt"
	"os"

	"github.com/goliatone/go-iform/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "iform:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
