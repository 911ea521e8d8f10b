package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/initify/solarhook/internal/app"
	"github.com/initify/solarhook/internal/config"
	"github.com/initify/solarhook/internal/logging"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		logrus.Fatalf("config error: %v", err)
	}
	if err := logging.Setup(cfg.LogLevel, os.Stdout); err != nil {
		logrus.Warnf("using info log level: %v", err)
	}

	srv, err := app.ServerFromConfig(cfg)
	if err != nil {
		logrus.Fatalf("setup error: %v", err)
	}
	if err := srv.ListenAndServeUntilSignal(); err != nil {
		logrus.Fatal(err)
	}
}
