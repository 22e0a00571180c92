package main

import (
	"os"

	"github.com/quickwritereader/attrscope/logger"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Log.WithError(err).Error("scopetool failed")
		os.Exit(1)
	}
}
