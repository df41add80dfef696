package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/shardkv/cmd/kv"
	"github.com/ValentinKolb/shardkv/cmd/ring"
	"github.com/ValentinKolb/shardkv/cmd/serve"
	"github.com/ValentinKolb/shardkv/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "shardkv",
		Short: "sharded key-value store",
		Long: fmt.Sprintf(`shardkv (v%s)

A client-side sharding layer for Redis-style key-value nodes written in Go.
Keys are spread over independent nodes with a consistent hashing ring; commands
are routed by key, broadcast to every node or rejected if they span the key space.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of shardkv",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("shardkv v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(ring.RingCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("serializer to use (json, gob, binary)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (http, tcp, unix)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
