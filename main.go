// Package main is the entry point for the impactcov CLI.
package main

import (
	"fmt"
	"os"

	"github.com/huangsam/impactcov/cmd"
	"github.com/huangsam/impactcov/internal/contract"
	"github.com/huangsam/impactcov/internal/iocache"
)

func main() {
	err := cmd.Execute()
	iocache.CloseHistory()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%s %v\n", contract.FailColor.Sprint("Error:"), err)
		os.Exit(contract.ExitCodeOf(err))
	}
}
