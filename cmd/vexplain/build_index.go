package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBuildIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build-index",
		Short: "Embed the knowledge source into a vector index",
		Long: "Load knowledge records (ClinVar CSV/TSV/parquet, or the synthetic set when the source is absent), " +
			"embed them and write the index bundle. With --append only records missing from the index are embedded.",
		Args: noArgs,
		RunE: runBuildIndex,
	}

	cmd.Flags().String("source", "", "knowledge source path (default: knowledge.source)")
	cmd.Flags().String("index-dir", "", "index directory (default: index.dir)")
	cmd.Flags().Bool("append", false, "add only records not yet indexed")

	return cmd
}

func runBuildIndex(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	source := stringFlag(cmd, "source", a.cfg.Knowledge.Source)
	dir := stringFlag(cmd, "index-dir", a.cfg.Index.Dir)
	appendOnly, _ := cmd.Flags().GetBool("append")

	ctx := cmd.Context()
	c, err := a.wire(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if appendOnly {
		added, err := c.pipeline.AppendIndex(ctx, source, dir)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "Appended %d records to %s\n", added, dir)
		return err
	}

	if _, err := c.pipeline.BuildIndex(ctx, source, dir); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "Index written to %s\n", dir)
	return err
}

// stringFlag returns the flag value when set, else def.
func stringFlag(cmd *cobra.Command, name, def string) string {
	if v, _ := cmd.Flags().GetString(name); v != "" {
		return v
	}
	return def
}
