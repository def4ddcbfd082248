package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/reviewbot/codegraph/internal/ir"
	"github.com/reviewbot/codegraph/internal/store"
	"github.com/spf13/cobra"
)

var (
	showSymbol string
	showDepth  int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Look up a symbol by fully-qualified name",
	Long:  `Looks up a symbol by fqn, and optionally lists its callers and callees to a given depth.`,
	RunE:  runShow,
}

func init() {
	showCmd.Flags().StringVar(&showSymbol, "symbol", "", "fully-qualified name to look up (required)")
	showCmd.Flags().IntVar(&showDepth, "depth", 1, "traversal depth for callers/callees")
	showCmd.MarkFlagRequired("symbol")
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	sym, err := st.FindSymbolByFQN(ctx, showSymbol)
	if errors.Is(err, store.ErrNotFound) {
		fmt.Println("not found")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("fqn:       %s\n", sym.FQN)
	fmt.Printf("kind:      %s\n", sym.Kind)
	fmt.Printf("language:  %s\n", sym.Language)
	fmt.Printf("file:      %s\n", sym.FilePath)
	fmt.Printf("signature: %s\n", sym.Signature)

	if showDepth > 0 {
		callers, err := st.GetCallers(ctx, sym.ID, showDepth)
		if err != nil {
			return err
		}
		fmt.Printf("\ncallers (depth %d):\n", showDepth)
		printSymbols(callers)

		callees, err := st.GetCallees(ctx, sym.ID, showDepth)
		if err != nil {
			return err
		}
		fmt.Printf("\ncallees (depth %d):\n", showDepth)
		printSymbols(callees)

		dependents, err := st.GetFileDependents(ctx, sym.FilePath)
		if err != nil {
			return err
		}
		fmt.Printf("\nfile importers:\n")
		for _, d := range dependents {
			fmt.Printf("  %s\n", d)
		}
	}
	return nil
}

func printSymbols(symbols []ir.Symbol) {
	if len(symbols) == 0 {
		fmt.Println("  (none)")
		return
	}
	for _, s := range symbols {
		fmt.Printf("  %s (%s)\n", s.FQN, s.FilePath)
	}
}
