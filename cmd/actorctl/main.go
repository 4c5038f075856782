package main

import (
	"os"

	"github.com/qq587282/actorgo/cmd/actorctl/internal/actorctl"
)

func main() {
	if err := actorctl.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
