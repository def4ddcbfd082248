package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Substring-search symbol names and fully-qualified names",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "k", 20, "maximum results")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	results, err := st.SearchSymbols(ctx, args[0], searchLimit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("not found")
		return nil
	}
	for _, s := range results {
		fmt.Printf("%s\t%s\t%s\n", s.FQN, s.Kind, s.FilePath)
	}
	return nil
}
