package servercli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var ackdCreate = &cobra.Command{
	Use:   "create [ackd config filepath]",
	Short: "Create an ackd server from the configuration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return StartServer(args[0])
	},
}

var commandWithPort = &cobra.Command{
	Use:   "port [listening port]",
	Short: "Start ackd on the given port",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := IsNum(args[0])
		if err != nil {
			return err
		}
		defaultProperties.Port = int(n)
		return StartServer("")
	},
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	return err == nil && !info.IsDir()
}

// IsNum validates a listening port argument
func IsNum(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, err
	}
	if n < 1024 || n > 65535 {
		return 0, fmt.Errorf("listening port is greater than 65535 or less than 1024")
	}
	return n, nil
}

func init() {
	AddCommand(ackdCreate)
	AddCommand(commandWithPort)
}
