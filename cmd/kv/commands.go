package kv

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ValentinKolb/shardkv/cmd/util"
	"github.com/ValentinKolb/shardkv/lib/shard"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	pipeCmd = &cobra.Command{
		Use:   "pipe",
		Short: "Read commands from stdin and execute them as one pipeline",
		Long: `Read one command per line (COMMAND KEY [ARGS...]) from stdin, queue them in a
pipeline and execute it with one round trip per node. Empty lines and lines starting
with # are ignored. The results are printed in input order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipe(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	commandsCmd = &cobra.Command{
		Use:   "commands",
		Short: "List the commands by routing variant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, group := range []struct {
				title string
				names []string
			}{
				{"direct (routed by key)", shard.DirectCommands()},
				{"broadcast (sent to every node)", shard.BroadcastCommands()},
				{"forbidden (not shardable)", shard.ForbiddenCommands()},
			} {
				fmt.Fprintf(out, "%s:\n", group.title)
				fmt.Fprintln(out, util.WrapString(strings.Join(group.names, " ")))
				fmt.Fprintln(out)
			}
			return nil
		},
	}
)

func init() {
	key := "pipe-timeout"
	pipeCmd.Flags().Int(key, 30, util.WrapString("Timeout in seconds for the whole pipeline"))
}

// runCommand executes one command through the router
func runCommand(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(max(viper.GetInt("timeout"), 1))*time.Second)
	defer cancel()

	command, key, rest := splitCommand(args)
	value, err := session.Router.Invoke(ctx, command, key, rest...)
	if results, ok := value.(map[string]shard.Result); ok {
		printBroadcast(cmd.OutOrStdout(), results)
		return err
	}
	if err != nil {
		return err
	}
	printValue(cmd.OutOrStdout(), value, "")
	return nil
}

// splitCommand splits command line tokens into command, key and arguments.
// Two-word commands such as "debug object" are joined back into one name.
func splitCommand(fields []string) (command, key string, args []any) {
	command = fields[0]
	rest := fields[1:]
	if len(rest) > 0 && shard.Lookup(command+" "+rest[0]) != shard.Unknown {
		command += " " + rest[0]
		rest = rest[1:]
	}
	if len(rest) > 0 {
		key = rest[0]
		for _, a := range rest[1:] {
			args = append(args, a)
		}
	}
	return command, key, args
}

// runPipe reads commands from r, executes them as one pipeline and writes the results to w
func runPipe(r io.Reader, w io.Writer) error {
	p := session.Router.Pipeline()
	var lines []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		command, key, args := splitCommand(strings.Fields(line))
		p.Queue(command, key, args...)
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read commands: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(max(viper.GetInt("pipe-timeout"), 1))*time.Second)
	defer cancel()

	failed := 0
	for i, res := range p.Exec(ctx) {
		fmt.Fprintf(w, "%d) %s\n", i+1, lines[i])
		if res.Err != nil {
			failed++
			fmt.Fprintf(w, "   (error) %v\n", res.Err)
			continue
		}
		printValue(w, res.Value, "   ")
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d commands failed", failed, len(lines))
	}
	return nil
}

// --------------------------------------------------------------------------
// Output
// --------------------------------------------------------------------------

// printValue prints a reply in the style of redis-cli
func printValue(w io.Writer, value any, indent string) {
	switch v := value.(type) {
	case nil:
		fmt.Fprintf(w, "%s(nil)\n", indent)
	case int64:
		fmt.Fprintf(w, "%s(integer) %d\n", indent, v)
	case string:
		fmt.Fprintf(w, "%s%q\n", indent, v)
	case []any:
		if len(v) == 0 {
			fmt.Fprintf(w, "%s(empty array)\n", indent)
			return
		}
		for i, item := range v {
			fmt.Fprintf(w, "%s%d) ", indent, i+1)
			printValue(w, item, "")
		}
	default:
		fmt.Fprintf(w, "%s%v\n", indent, v)
	}
}

// printBroadcast prints the per node results of a broadcast sorted by node name
func printBroadcast(w io.Writer, results map[string]shard.Result) {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		res := results[name]
		if res.Err != nil {
			fmt.Fprintf(w, "%s: (error) %v\n", name, res.Err)
			continue
		}
		fmt.Fprintf(w, "%s: ", name)
		printValue(w, res.Value, "")
	}
}
