package servercli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ackio/ackd/ack"
	"github.com/ackio/ackd/config"
	ackgnet "github.com/ackio/ackd/gnet"
	"github.com/ackio/ackd/lib/logger"
	"github.com/ackio/ackd/lib/utils"
	"github.com/ackio/ackd/tcp"
	gnetv2 "github.com/panjf2000/gnet/v2"
)

var defaultProperties = &config.ServerProperties{
	Bind:            "0.0.0.0",
	Port:            7979,
	Backlog:         5,
	MaxConnect:      1000,
	ShutdownTimeout: 10,
	Engine:          "tcp",
	RunID:           utils.RandString(40),
}

var banner = `
               __       __
  ____ ______/ /______/ /
 / __ '/ ___/ //_/ __  /
/ /_/ / /__/ ,< / /_/ /
\__,_/\___/_/|_|\__,_/
`

var rootCmd = &cobra.Command{
	Use:   "ackd",
	Short: "ackd is a tcp server which answers every connection with a single fixed acknowledgment, serving each client in a worker of its own.",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := ""
		return StartServer(f)
	},
}

// AddCommand add command into Cli
func AddCommand(cmdline *cobra.Command) {
	rootCmd.AddCommand(cmdline)
}

// StartServer loads the configuration and serves until a termination
// signal. cf names a config file, the CONFIG environment variable takes
// precedence, built-in defaults apply when neither is given.
func StartServer(cf string) error {
	configFilename := os.Getenv("CONFIG")
	if configFilename == "" {
		if fileExists(cf) {
			config.SetupConfig(cf)
			abs, err := filepath.Abs(cf)
			if err == nil {
				config.Properties.CfPath = abs
			}
		} else {
			config.Properties = defaultProperties
		}
	} else {
		config.SetupConfig(configFilename)
	}

	print(banner)
	logger.Setup(&logger.Settings{
		Path:       "logs",
		Name:       "ackd",
		Ext:        "log",
		TimeFormat: "2006-01-02",
	})
	logger.Infof("run id: %s", config.Properties.RunID)

	addr := fmt.Sprintf("%s:%d", config.Properties.Bind, config.Properties.Port)
	if config.Properties.Engine == "gnet" {
		server := ackgnet.NewAckServer()
		return gnetv2.Run(server, "tcp://"+addr, gnetv2.WithMulticore(true))
	}
	return tcp.ListenAndServeWithSignal(&tcp.Config{
		Address:    addr,
		MaxConnect: uint32(config.Properties.MaxConnect),
		Timeout:    time.Duration(config.Properties.ShutdownTimeout) * time.Second,
	}, ack.MakeHandler())
}

func Execute() error {
	return rootCmd.Execute()
}
