package main

import (
	"fmt"
	"os"

	"github.com/lanikai/alohasrc/internal/logging"
)

var log = logging.DefaultLogger.WithTag("cli")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
