package util

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/shardkv/lib/discovery"
	"github.com/ValentinKolb/shardkv/lib/ring"
	"github.com/ValentinKolb/shardkv/lib/shard"
	"github.com/ValentinKolb/shardkv/rpc/client"
	"github.com/ValentinKolb/shardkv/rpc/common"
	"github.com/ValentinKolb/shardkv/rpc/serializer"
	"github.com/ValentinKolb/shardkv/rpc/transport"
	"github.com/ValentinKolb/shardkv/rpc/transport/http"
	"github.com/ValentinKolb/shardkv/rpc/transport/tcp"
	"github.com/ValentinKolb/shardkv/rpc/transport/unix"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables (e.g. SHARDKV_NODES)
	EnvPrefix = "shardkv"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// --------------------------------------------------------------------------
// Flags
// --------------------------------------------------------------------------

// SetupRingFlags adds the flags describing the node set and the ring to a command
func SetupRingFlags(cmd *cobra.Command) {
	key := "nodes"
	cmd.PersistentFlags().String(key, "", WrapString("Comma-separated list of shard nodes. Format: NAME=ENDPOINT[|ENDPOINT...] (e.g. a=localhost:8081,b=localhost:8082)"))

	key = "config"
	cmd.PersistentFlags().String(key, "", WrapString("Config file (yaml, toml or json) with a 'nodes' list of {name, endpoints, namespace, password}. Used if --nodes is empty"))

	key = "replicas"
	cmd.PersistentFlags().Int(key, ring.DefaultReplicas, WrapString("Number of ring points per node. All clients of a key space must use the same value"))

	key = "hash"
	cmd.PersistentFlags().String(key, "crc32", WrapString("Ring hash function (crc32, murmur3, city). All clients of a key space must use the same function"))

	key = "wrap-around"
	cmd.PersistentFlags().Bool(key, false, WrapString("Keys hashing above the largest ring point go to the first point instead of the last one"))

	key = "zk-servers"
	cmd.PersistentFlags().String(key, "", WrapString("Comma-separated list of ZooKeeper servers. If set, the nodes are read from the registry instead of --nodes"))

	key = "zk-path"
	cmd.PersistentFlags().String(key, "/shardkv", WrapString("Root path of the node registry in ZooKeeper"))
}

// SetupRPCClientFlags adds common RPC connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	SetupRingFlags(cmd)

	key := "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds of the client"))

	key = "password"
	cmd.PersistentFlags().String(key, "", WrapString("Password sent to every node that has none configured"))

	key = "namespace"
	cmd.PersistentFlags().Uint64(key, 0, WrapString("Namespace selected on every node that has none configured"))

	key = "max-fanout"
	cmd.PersistentFlags().Int(key, 0, WrapString("Maximum number of concurrent node calls of a broadcast or pipeline (0 = one per node)"))

	key = "transport-conn-per-endpoint"
	cmd.PersistentFlags().Int(key, 1, WrapString("Simultaneous connections per endpoint - for transports that support this feature"))

	key = "transport-retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("How many times to try sending a request that could not be written"))

	key = "transport-tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY for the transport (only for tcp)"))

	key = "transport-tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval for the transport (in seconds, only for tcp)"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// GetClientConfig reads the per node client configuration from viper
func GetClientConfig() *common.ClientConfig {
	return &common.ClientConfig{
		TimeoutSecond:          viper.GetInt("timeout"),
		RetryCount:             viper.GetInt("transport-retries"),
		ConnectionsPerEndpoint: viper.GetInt("transport-conn-per-endpoint"),
		TCPNoDelay:             viper.GetBool("transport-tcp-nodelay"),
		TCPKeepAliveSec:        viper.GetInt("transport-tcp-keepalive"),
	}
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IRPCSerializer, error) {
	switch viper.GetString("serializer") {
	case "json":
		return serializer.NewJSONSerializer(), nil
	case "gob":
		return serializer.NewGOBSerializer(), nil
	case "binary":
		return serializer.NewBinarySerializer(), nil
	default:
		return nil, fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}
}

// GetTransportFactory returns a constructor for the configured client transport.
// Every node connection gets its own transport.
func GetTransportFactory() (func() transport.IRPCClientTransport, error) {
	switch viper.GetString("transport") {
	case "http":
		return http.NewHttpClientTransport, nil
	case "tcp":
		return tcp.NewTCPClientTransport, nil
	case "unix":
		return unix.NewUnixClientTransport, nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// GetRing builds a ring over names using the ring flags
func GetRing(names []string) (*ring.Ring, error) {
	hash, err := ring.ParseHashFunc(viper.GetString("hash"))
	if err != nil {
		return nil, err
	}
	r := ring.New(viper.GetInt("replicas"),
		ring.WithHashFunc(hash),
		ring.WithWrapAround(viper.GetBool("wrap-around")),
		ring.WithDuplicateGuard(true),
	)
	for _, name := range names {
		r.AddNode(name)
	}
	return r, nil
}

// GetRouterOptions returns the router options of the configuration
func GetRouterOptions() ([]shard.Option, error) {
	hash, err := ring.ParseHashFunc(viper.GetString("hash"))
	if err != nil {
		return nil, err
	}
	return []shard.Option{
		shard.WithReplicas(viper.GetInt("replicas")),
		shard.WithHashFunc(hash),
		shard.WithWrapAround(viper.GetBool("wrap-around")),
		shard.WithMaxFanout(viper.GetInt("max-fanout")),
	}, nil
}

// GetNodes returns the static node list from --nodes or, if that is empty, from the
// 'nodes' list of the config file. Password and namespace flags fill in unset fields.
func GetNodes() ([]shard.NodeConfig, error) {
	var nodes []shard.NodeConfig
	if s := viper.GetString("nodes"); s != "" {
		parsed, err := shard.ParseNodes(s)
		if err != nil {
			return nil, err
		}
		nodes = parsed
	} else if file := viper.GetString("config"); file != "" {
		viper.SetConfigFile(file)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := viper.UnmarshalKey("nodes", &nodes); err != nil {
			return nil, fmt.Errorf("invalid node list in %s: %w", file, err)
		}
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("no nodes configured (use --nodes, --config or --zk-servers)")
	}
	return withDefaults(nodes), nil
}

// withDefaults applies the password and namespace flags to nodes without own values
func withDefaults(nodes []shard.NodeConfig) []shard.NodeConfig {
	password := viper.GetString("password")
	namespace := viper.GetUint64("namespace")
	for i := range nodes {
		if nodes[i].Password == "" {
			nodes[i].Password = password
		}
		if nodes[i].Namespace == 0 {
			nodes[i].Namespace = namespace
		}
	}
	return nodes
}

// zkServers returns the configured ZooKeeper servers (nil if discovery is disabled)
func zkServers() []string {
	var servers []string
	for _, s := range strings.Split(viper.GetString("zk-servers"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			servers = append(servers, s)
		}
	}
	return servers
}

// OpenRegistry connects to the ZooKeeper node registry. It returns nil if no
// ZooKeeper servers are configured.
func OpenRegistry() (*discovery.Registry, error) {
	servers := zkServers()
	if len(servers) == 0 {
		return nil, nil
	}
	return discovery.Connect(servers, viper.GetString("zk-path"), 10*time.Second,
		discovery.WithPassword(viper.GetString("password")))
}

// ResolveNodes returns the node list, from the registry if one is configured
func ResolveNodes() ([]shard.NodeConfig, error) {
	reg, err := OpenRegistry()
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return GetNodes()
	}
	defer reg.Close()
	nodes, err := reg.Nodes()
	if err != nil {
		return nil, err
	}
	return withDefaults(nodes), nil
}

// --------------------------------------------------------------------------
// Router
// --------------------------------------------------------------------------

// Session is a router together with the background resources it depends on
type Session struct {
	Router *shard.Router
	cancel context.CancelFunc
	reg    *discovery.Registry
}

// Close stops the membership watch and closes the router
func (s *Session) Close() error {
	s.cancel()
	var result *multierror.Error
	if err := s.Router.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if s.reg != nil {
		if err := s.reg.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// NewSession creates a router from the configuration. With --zk-servers set, the node
// set is read from ZooKeeper and kept in sync until the session is closed.
func NewSession(ctx context.Context, metrics *shard.Metrics) (*Session, error) {
	ser, err := GetSerializer()
	if err != nil {
		return nil, err
	}
	newTransport, err := GetTransportFactory()
	if err != nil {
		return nil, err
	}
	opts, err := GetRouterOptions()
	if err != nil {
		return nil, err
	}
	if metrics != nil {
		opts = append(opts, shard.WithMetrics(metrics))
	}
	dialer := client.Dialer(*GetClientConfig(), newTransport, ser)

	reg, err := OpenRegistry()
	if err != nil {
		return nil, err
	}

	var nodes []shard.NodeConfig
	if reg != nil {
		nodes, err = reg.Nodes()
		nodes = withDefaults(nodes)
	} else {
		nodes, err = GetNodes()
	}
	if err != nil {
		if reg != nil {
			_ = reg.Close()
		}
		return nil, err
	}

	router, err := shard.New(ctx, nodes, dialer, opts...)
	if err != nil {
		if reg != nil {
			_ = reg.Close()
		}
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	if reg != nil {
		go func() {
			if err := reg.Watch(watchCtx, router); err != nil {
				discovery.Logger.Errorf("membership watch stopped: %v", err)
			}
		}()
	}
	return &Session{Router: router, cancel: cancel, reg: reg}, nil
}
