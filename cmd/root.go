package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/finnegan-hale/meidkv/cmd/client"
	"github.com/finnegan-hale/meidkv/cmd/serve"
)

const Version = "0.1.0"

var (
	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "meidkv",
		Short: "in-memory key/value store with sharded on-disk durability",
		Long: fmt.Sprintf(`meidkv (v%s)

An in-memory key/value store with sharded binary-file durability, an
append-only recovery log, and a line-oriented TCP shell.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of meidkv",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("meidkv v%s\n", Version)
		},
	}
)

func init() {
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(client.ClientCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
