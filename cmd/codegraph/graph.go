package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/reviewbot/codegraph/internal/graphmem"
	"github.com/reviewbot/codegraph/internal/store"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Whole-graph queries over the latest commit snapshot",
}

var graphStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Node/edge counters and the whole-graph cyclicity flag",
	RunE:  runGraphStats,
}

var (
	graphCyclesSymbol string
	graphPathFrom     string
	graphPathTo       string
)

var graphCyclesCmd = &cobra.Command{
	Use:   "cycles",
	Short: "Strongly connected components (size >= 2) containing a symbol",
	RunE:  runGraphCycles,
}

var graphPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Shortest directed path between two symbols",
	RunE:  runGraphPath,
}

func init() {
	graphCyclesCmd.Flags().StringVar(&graphCyclesSymbol, "symbol", "", "fully-qualified name (required)")
	graphCyclesCmd.MarkFlagRequired("symbol")

	graphPathCmd.Flags().StringVar(&graphPathFrom, "from", "", "fully-qualified name of the source symbol (required)")
	graphPathCmd.Flags().StringVar(&graphPathTo, "to", "", "fully-qualified name of the destination symbol (required)")
	graphPathCmd.MarkFlagRequired("from")
	graphPathCmd.MarkFlagRequired("to")

	graphCmd.AddCommand(graphStatsCmd)
	graphCmd.AddCommand(graphCyclesCmd)
	graphCmd.AddCommand(graphPathCmd)
}

// loadGraph opens the store, loads the latest commit's symbols and edges,
// and assembles the in-memory overlay (§4.4) they describe.
func loadGraph(ctx context.Context) (store.Store, *graphmem.Graph, error) {
	st, err := openStore()
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	commit, err := st.LatestCommit(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return st, graphmem.New(), nil
	}
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	symbols, edges, err := st.LoadCommitGraph(ctx, commit.ID)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return st, graphmem.BuildFromData(symbols, edges), nil
}

func runGraphStats(cmd *cobra.Command, args []string) error {
	st, g, err := loadGraph(context.Background())
	if err != nil {
		return err
	}
	defer st.Close()

	stats := g.Stats()
	fmt.Printf("nodes:     %d\n", stats.NodeCount)
	fmt.Printf("edges:     %d\n", stats.EdgeCount)
	fmt.Printf("is_cyclic: %v\n", stats.IsCyclic)
	return nil
}

func runGraphCycles(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	st, g, err := loadGraph(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	sym, err := st.FindSymbolByFQN(ctx, graphCyclesSymbol)
	if errors.Is(err, store.ErrNotFound) {
		fmt.Println("not found")
		return nil
	}
	if err != nil {
		return err
	}

	cycles := g.FindCyclesContaining(sym.ID)
	if len(cycles) == 0 {
		fmt.Println("no cycles")
		return nil
	}
	for i, cycle := range cycles {
		fmt.Printf("cycle %d (%d members):\n", i+1, len(cycle))
		for _, id := range cycle {
			fmt.Printf("  %s\n", id)
		}
	}
	return nil
}

func runGraphPath(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	st, g, err := loadGraph(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	from, err := st.FindSymbolByFQN(ctx, graphPathFrom)
	if errors.Is(err, store.ErrNotFound) {
		fmt.Println("not found")
		return nil
	}
	if err != nil {
		return err
	}
	to, err := st.FindSymbolByFQN(ctx, graphPathTo)
	if errors.Is(err, store.ErrNotFound) {
		fmt.Println("not found")
		return nil
	}
	if err != nil {
		return err
	}

	path := g.FindPath(from.ID, to.ID)
	if path == nil {
		fmt.Println("unreachable")
		return nil
	}
	for _, id := range path {
		fmt.Println(id)
	}
	return nil
}
