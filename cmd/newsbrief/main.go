package main

import (
	"os"

	"github.com/deusflow/newsbrief/internal/logger"
)

func main() {
	if err := rootApp().Run(os.Args); err != nil {
		logger.Error("newsbrief failed", "error", err)
		os.Exit(1)
	}
}
