// Package main is the entry point for the catalog-sync application.
package main

import (
	"os"

	"github.com/mcpdirectory/catalog-sync/cmd/catalog-sync/app"
	"github.com/mcpdirectory/catalog-sync/internal/logger"
)

func main() {
	defer logger.Sync()

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
