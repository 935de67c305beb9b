package main

import (
	"os"

	"github.com/rustyeddy/copytrader/cmd/copytrader/cmd"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := cmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
