// b64serve – a loopback-only helper that serves file contents base64-encoded
// as JSON, for test tooling that cannot touch the filesystem itself.
package main

import (
	"github.com/sirupsen/logrus"

	"b64serve/config"
	"b64serve/server"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("configuration error: %v", err)
	}

	if err := server.Run(cfg); err != nil {
		logrus.Fatalf("server error: %v", err)
	}
}
