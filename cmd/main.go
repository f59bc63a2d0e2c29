package main

import (
	log "github.com/sirupsen/logrus"

	"github.com/cloud-scan/controlcenter/internal/cli"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	log.WithFields(log.Fields{
		"version":   version,
		"commit":    commit,
		"buildDate": buildDate,
	}).Info("starting controlcenter")

	cli.Execute()
}
