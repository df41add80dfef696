package kv

import (
	"context"

	"github.com/ValentinKolb/shardkv/cmd/util"
	"github.com/spf13/cobra"
)

var (
	session *util.Session

	// KeyValueCommands represents the KV command group. Without a subcommand the
	// arguments are executed as one command through the router.
	KeyValueCommands = &cobra.Command{
		Use:   "kv [command] [key] [args...]",
		Short: "Run commands against the sharded key space",
		Long: `Run a command through the shard router, e.g.

  shardkv kv --nodes a=localhost:8081,b=localhost:8082 set user:{42}:name alice
  shardkv kv --nodes a=localhost:8081,b=localhost:8082 get user:{42}:name

Direct commands are sent to the node owning the key. "auth" and "select" are sent to
every node. Commands that span the whole key space (keys, flushall, ...) are rejected.
Use -- before arguments starting with a dash (e.g. kv -- incrby counter -5).`,
		Args:               cobra.MinimumNArgs(1),
		PersistentPreRunE:  setupRouter,
		PersistentPostRunE: closeRouter,
		RunE:               runCommand,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC and ring flags to the KV command
	util.SetupRPCClientFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(pipeCmd)
	KeyValueCommands.AddCommand(commandsCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupRouter connects the router to all configured nodes
func setupRouter(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// The command table needs no connection
	if cmd == commandsCmd {
		return nil
	}

	var err error
	session, err = util.NewSession(context.Background(), routerMetrics)
	return err
}

// closeRouter closes all node connections
func closeRouter(_ *cobra.Command, _ []string) error {
	if session == nil {
		return nil
	}
	return session.Close()
}
