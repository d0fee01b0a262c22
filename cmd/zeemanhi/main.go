// Command zeemanhi evaluates, samples and records the 21-cm Zeeman
// absorption forward model.
package main

import (
	"fmt"
	"os"

	"github.com/tvwenger/bayes-zeeman-hi/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
