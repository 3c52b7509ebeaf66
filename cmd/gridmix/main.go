package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.WithError(err).Error("gridmix failed")
		os.Exit(1)
	}
}
