package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/vexplain/internal/index"
)

func newValidateIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate-index",
		Short: "Check an index bundle for missing or inconsistent artifacts",
		Args:  noArgs,
		RunE:  runValidateIndex,
	}

	cmd.Flags().String("index-dir", "", "index directory (default: index.dir)")

	return cmd
}

func runValidateIndex(cmd *cobra.Command, _ []string) error {
	dir, _ := cmd.Flags().GetString("index-dir")
	if dir == "" {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		dir = a.cfg.Index.Dir
	}

	desc, err := index.Validate(dir)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(desc)
}
