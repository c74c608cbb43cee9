package main

import (
	"os"

	"github.com/achilleasa/polaris-bake/cmd"
	"github.com/achilleasa/polaris-bake/log"
	"github.com/joho/godotenv"
)

func main() {
	logger := log.New("polaris-bake")

	// Settings may also be provided through a .env file in the working dir.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warningf("could not load .env file: %s", err.Error())
	}

	app := cmd.NewApp()
	if err := app.Run(os.Args); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}
