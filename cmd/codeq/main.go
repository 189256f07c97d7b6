package main

import (
	"errors"
	"os"

	"github.com/sprite-ai/codeq/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		var exit *cli.ExitError
		if errors.As(err, &exit) {
			os.Exit(exit.Code)
		}
		os.Exit(1)
	}
}
