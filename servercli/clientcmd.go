package servercli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ackio/ackd/client"
)

var clientCmd = &cobra.Command{
	Use:   "client [host:port] [message]",
	Short: "Send one message to an ackd server and print the reply",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		request := ""
		if len(args) == 2 {
			request = args[1]
		} else {
			fmt.Print("please enter the message: ")
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && err != io.EOF {
				return err
			}
			request = strings.TrimRight(line, "\r\n")
		}
		reply, err := client.Exchange(args[0], []byte(request), 10*time.Second)
		if err != nil {
			return err
		}
		fmt.Println(string(reply))
		return nil
	},
}

func init() {
	AddCommand(clientCmd)
}
