package serve

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	cmdUtil "github.com/ValentinKolb/shardkv/cmd/util"
	"github.com/ValentinKolb/shardkv/lib/shard"
	"github.com/ValentinKolb/shardkv/rpc/common"
	"github.com/ValentinKolb/shardkv/rpc/server"
	"github.com/ValentinKolb/shardkv/rpc/transport"
	"github.com/ValentinKolb/shardkv/rpc/transport/http"
	"github.com/ValentinKolb/shardkv/rpc/transport/tcp"
	"github.com/ValentinKolb/shardkv/rpc/transport/unix"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start a shard node",
		Long:    `Start a shard node serving in-memory namespaces. The configuration can be set via command line flags or environment variables. The format of the environment variables is SHARDKV_<flag> (e.g. SHARDKV_NAMESPACES=16)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitClientConfig)

	// add flags
	key := "namespaces"
	ServeCmd.PersistentFlags().Uint64(key, 16, cmdUtil.WrapString("Number of namespaces (independent keyspaces, selectable with 'select n')"))

	key = "password"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("If set, clients must authenticate with this password before any other command"))

	key = "session-ttl"
	ServeCmd.PersistentFlags().Int64(key, 3600, cmdUtil.WrapString("Seconds a session token stays valid without being used"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("Write timeout in seconds"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the API will listen (e.g. localhost:8080, /tmp/shardkv.sock, ...)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Address of the Prometheus /metrics endpoint (disabled if empty)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "buffer-size"
	ServeCmd.PersistentFlags().Int(key, 512, cmdUtil.WrapString("Size of the per request read buffer (in KB, ignored for http)"))

	key = "workers-per-conn"
	ServeCmd.PersistentFlags().Int(key, 64, cmdUtil.WrapString("Maximum number of requests processed concurrently per connection (ignored for http)"))

	key = "transport-write-buffer"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The size of the socket write buffer (in KB, 0 = system default, only for tcp)"))

	key = "transport-read-buffer"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The size of the socket read buffer (in KB, 0 = system default, only for tcp)"))

	key = "transport-tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, true, cmdUtil.WrapString("Whether to enable TCP_NODELAY (only for tcp)"))

	key = "transport-tcp-keepalive"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The keepalive interval (in seconds, only for tcp)"))

	key = "transport-tcp-linger"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The linger time (in seconds, only for tcp)"))

	key = "zk-servers"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Comma-separated list of ZooKeeper servers. If set, the node registers itself in the node registry"))

	key = "zk-path"
	ServeCmd.PersistentFlags().String(key, "/shardkv", cmdUtil.WrapString("Root path of the node registry in ZooKeeper"))

	key = "name"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Name of the node on the ring (required with --zk-servers)"))

	key = "advertise"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Comma-separated endpoints clients use to reach this node (defaults to --endpoint)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.Namespaces = viper.GetUint64("namespaces")
	serveCmdConfig.Password = viper.GetString("password")
	serveCmdConfig.SessionTTLSecond = viper.GetInt64("session-ttl")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.BufferSize = viper.GetInt("buffer-size") * 1024
	serveCmdConfig.WorkersPerConn = viper.GetInt("workers-per-conn")
	serveCmdConfig.WriteBufferSize = viper.GetInt("transport-write-buffer") * 1024
	serveCmdConfig.ReadBufferSize = viper.GetInt("transport-read-buffer") * 1024
	serveCmdConfig.TCPNoDelay = viper.GetBool("transport-tcp-nodelay")
	serveCmdConfig.TCPKeepAliveSec = viper.GetInt("transport-tcp-keepalive")
	serveCmdConfig.TCPLingerSec = viper.GetInt("transport-tcp-linger")

	if serveCmdConfig.Namespaces == 0 {
		return fmt.Errorf("at least one namespace is required")
	}
	if viper.GetString("zk-servers") != "" && viper.GetString("name") == "" {
		return fmt.Errorf("--name is required to register in ZooKeeper")
	}

	return nil
}

// run starts the shard node
func run(_ *cobra.Command, _ []string) error {

	// parse the serializer
	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	// Parse the transport
	var t transport.IRPCServerTransport
	switch viper.GetString("transport") {
	case "http":
		t = http.NewHttpServerTransport()
	case "tcp":
		t = tcp.NewTCPServerTransport(serveCmdConfig.BufferSize, serveCmdConfig.WorkersPerConn)
	case "unix":
		t = unix.NewUnixServerTransport(serveCmdConfig.BufferSize, serveCmdConfig.WorkersPerConn)
	default:
		return fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}

	serv := server.NewRPCServer(
		*serveCmdConfig,
		t,
		s,
	)

	// Register in ZooKeeper, the ephemeral node disappears with the process
	reg, err := cmdUtil.OpenRegistry()
	if err != nil {
		return err
	}
	if reg != nil {
		defer reg.Close()
		endpoints := strings.Split(viper.GetString("advertise"), ",")
		if viper.GetString("advertise") == "" {
			endpoints = []string{serveCmdConfig.Endpoint}
		}
		if err := reg.Register(shard.NodeConfig{Name: viper.GetString("name"), Endpoints: endpoints}); err != nil {
			return err
		}
	}

	// Stop on SIGINT / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		if err := serv.Close(); err != nil {
			server.Logger.Errorf("shutdown failed: %v", err)
		}
	}()

	return serv.Serve()
}
