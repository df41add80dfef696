package ring

import (
	"fmt"
	"io"
	"strings"

	"github.com/ValentinKolb/shardkv/cmd/util"
	"github.com/ValentinKolb/shardkv/lib/ring"
	"github.com/ValentinKolb/shardkv/lib/shard"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	nodes []shard.NodeConfig
	rg    *ring.Ring

	// RingCommands represents the ring command group
	RingCommands = &cobra.Command{
		Use:   "ring",
		Short: "Inspect the hash ring of a node set",
		Long: `Print the nodes of the ring with their number of points and their share of the
hash space. The ring is computed locally from the node list, no node is contacted.`,
		Args:              cobra.NoArgs,
		PersistentPreRunE: setupRing,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printSummary(cmd.OutOrStdout())
		},
	}

	locateCmd = &cobra.Command{
		Use:   "locate [key...]",
		Short: "Print the node owning each key",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printLocations(cmd.OutOrStdout(), args)
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	util.SetupRingFlags(RingCommands)

	key := "output"
	RingCommands.PersistentFlags().String(key, "text", util.WrapString("Output format (text, yaml)"))

	key = "points"
	RingCommands.Flags().Bool(key, false, util.WrapString("Include every ring point in the yaml output"))

	RingCommands.AddCommand(locateCmd)
}

// setupRing builds the ring from the configured node set
func setupRing(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	switch viper.GetString("output") {
	case "text", "yaml":
	default:
		return fmt.Errorf("invalid output format %s", viper.GetString("output"))
	}

	var err error
	if nodes, err = util.ResolveNodes(); err != nil {
		return err
	}
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.Name
	}
	rg, err = util.GetRing(names)
	return err
}

// --------------------------------------------------------------------------
// Output
// --------------------------------------------------------------------------

type nodeSummary struct {
	Name      string   `yaml:"name"`
	Endpoints []string `yaml:"endpoints"`
	Points    int      `yaml:"points"`
	Share     float64  `yaml:"share"`
}

type ringSummary struct {
	Hash       string        `yaml:"hash"`
	Replicas   int           `yaml:"replicas"`
	WrapAround bool          `yaml:"wrapAround"`
	Nodes      []nodeSummary `yaml:"nodes"`
	Points     []ring.Point  `yaml:"points,omitempty"`
}

type location struct {
	Key  string `yaml:"key"`
	Tag  string `yaml:"tag"`
	Hash int32  `yaml:"hash"`
	Node string `yaml:"node"`
}

func summarize() ringSummary {
	points := rg.Points()
	counts := make(map[string]int, len(nodes))
	for _, p := range points {
		counts[p.Node]++
	}
	share := rg.Ownership()

	s := ringSummary{
		Hash:       strings.ToLower(viper.GetString("hash")),
		Replicas:   rg.Replicas(),
		WrapAround: rg.WrapAround(),
	}
	for _, n := range nodes {
		s.Nodes = append(s.Nodes, nodeSummary{
			Name:      n.Name,
			Endpoints: n.Endpoints,
			Points:    counts[n.Name],
			Share:     share[n.Name],
		})
	}
	if viper.GetBool("points") {
		s.Points = points
	}
	return s
}

func printSummary(w io.Writer) error {
	s := summarize()
	if viper.GetString("output") == "yaml" {
		return writeYAML(w, s)
	}

	fmt.Fprintf(w, "hash %s, %d points per node, wrap-around %t\n\n", s.Hash, s.Replicas, s.WrapAround)
	fmt.Fprintf(w, "%-16s %-8s %-8s %s\n", "NODE", "POINTS", "SHARE", "ENDPOINTS")
	for _, n := range s.Nodes {
		fmt.Fprintf(w, "%-16s %-8d %-8s %s\n", n.Name, n.Points, fmt.Sprintf("%.2f%%", n.Share*100), strings.Join(n.Endpoints, ", "))
	}
	return nil
}

func printLocations(w io.Writer, keys []string) error {
	hash, err := ring.ParseHashFunc(viper.GetString("hash"))
	if err != nil {
		return err
	}

	locations := make([]location, len(keys))
	for i, key := range keys {
		tag := shard.HashTag(key)
		node, err := rg.Resolve(tag)
		if err != nil {
			return err
		}
		locations[i] = location{Key: key, Tag: tag, Hash: hash(tag), Node: node}
	}

	if viper.GetString("output") == "yaml" {
		return writeYAML(w, locations)
	}
	for _, l := range locations {
		fmt.Fprintf(w, "%s -> %s (tag %q, hash %d)\n", l.Key, l.Node, l.Tag, l.Hash)
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
