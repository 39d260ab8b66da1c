package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/de-tools/deploy-gate/pkg/runtime/terminal"
	"github.com/de-tools/deploy-gate/pkg/runtime/terminal/commands"
)

func main() {
	cli := terminal.NewCLI(terminal.Options{
		Output: os.Stdout,
	})

	err := cli.Execute()
	if err == nil {
		return
	}

	// The verdict-derived exit code is mapped here, exactly once.
	var exitErr *commands.ExitCodeError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}

	// Anything else is an invocation/usage error.
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(2)
}
