package main

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/ackio/ackd/ack"
	"github.com/ackio/ackd/config"
	"github.com/ackio/ackd/lib/logger"
	"github.com/ackio/ackd/tcp"
)

//go:embed banner.txt
var banner string

func main() {
	print(banner)
	config.SetupConfig(os.Getenv("CONFIG"))
	logger.Setup(&logger.Settings{
		Path:       "logs",
		Name:       "ackd",
		Ext:        "log",
		TimeFormat: "2006-01-02",
	})

	err := tcp.ListenAndServeWithSignal(&tcp.Config{
		Address:    fmt.Sprintf("%s:%d", config.Properties.Bind, config.Properties.Port),
		MaxConnect: uint32(config.Properties.MaxConnect),
		Timeout:    time.Duration(config.Properties.ShutdownTimeout) * time.Second,
	}, ack.MakeHandler())
	if err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}
