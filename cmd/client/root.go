package client

import (
	"time"

	"github.com/spf13/cobra"

	cmdUtil "github.com/finnegan-hale/meidkv/cmd/util"
)

var (
	sess *session

	addr    string
	token   string
	timeout time.Duration

	// ClientCommands groups the scripting subcommands that talk to a
	// running meidkv shell over TCP.
	ClientCommands = &cobra.Command{
		Use:               "client",
		Short:             "Talk to a running meidkv shell",
		PersistentPreRunE: connect,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if sess != nil {
				return sess.close()
			}
			return nil
		},
	}
)

func init() {
	ClientCommands.PersistentFlags().StringVar(&addr, "addr", "localhost:6402", cmdUtil.WrapString("address of the meidkv shell"))
	ClientCommands.PersistentFlags().StringVar(&token, "token", "", cmdUtil.WrapString("access token to authenticate with"))
	ClientCommands.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Second, cmdUtil.WrapString("dial timeout"))

	ClientCommands.AddCommand(getCmd)
	ClientCommands.AddCommand(setCmd)
	ClientCommands.AddCommand(delCmd)
	ClientCommands.AddCommand(execCmd)
}

func connect(cmd *cobra.Command, _ []string) error {
	var err error
	sess, err = dial(addr, token, timeout)
	return err
}
