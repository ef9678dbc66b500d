package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ceyewan/sinteflake/clog"
	"github.com/ceyewan/sinteflake/metrics"
)

func newGenerateCmd() *cobra.Command {
	var (
		count  int
		nodeID uint64
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate IDs and print them to stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, _, err := loadConfig(ctx, cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("node-id") {
				cfg.IDGen.NodeID = nodeID
			}

			// stdout 只输出 ID
			logger, err := clog.New(&cfg.Log, clog.WithWriter(os.Stderr))
			if err != nil {
				return err
			}
			n, err := openNode(ctx, cfg, logger, metrics.Discard())
			if err != nil {
				return err
			}
			defer n.Close()

			ids, err := n.gen.NextBatch(ctx, count)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(map[string]any{"ids": ids})
			}
			for _, id := range ids {
				fmt.Fprintln(out, id)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of ids to generate")
	cmd.Flags().Uint64Var(&nodeID, "node-id", 0, "node id for the static allocator")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
