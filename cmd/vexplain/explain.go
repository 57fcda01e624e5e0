package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vexplain/internal/domain/batch"
	"github.com/kailas-cloud/vexplain/internal/repository/explanation"
	"github.com/kailas-cloud/vexplain/internal/repository/variants"
)

func newExplainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Explain annotated variants against the index",
		Long: "Retrieve similar known variants for each annotated variant, score confidence and write " +
			"variant_explanations.json, variant_explanations.tsv and retrieval_summary.json.",
		Args: noArgs,
		RunE: runExplain,
	}

	cmd.Flags().String("variants", "", "annotated variants table (VEP TSV/CSV/parquet)")
	cmd.Flags().String("index-dir", "", "index directory (default: index.dir)")
	cmd.Flags().String("source", "", "knowledge source used when the index must be built (default: knowledge.source)")
	cmd.Flags().String("out", "results", "output directory")
	cmd.Flags().Int("top-k", 0, "similar variants to retrieve per query (default: index.top_k)")
	cmd.Flags().Float64("min-similarity", 0, "minimum similarity of kept evidence (default: index.min_similarity)")
	cmd.Flags().Int("max-variants", 0, "explain at most this many variants, by priority (default: index.max_variants)")
	cmd.Flags().Bool("rebuild-index", false, "rebuild the index before explaining")

	return cmd
}

func runExplain(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("variants")
	if path == "" {
		return usagef("--variants is required")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := a.options()
	if cmd.Flags().Changed("top-k") {
		opts.TopK, _ = cmd.Flags().GetInt("top-k")
	}
	if cmd.Flags().Changed("min-similarity") {
		opts.Filter.MinSimilarity, _ = cmd.Flags().GetFloat64("min-similarity")
	}
	maxVariants := a.cfg.Index.MaxVariants
	if cmd.Flags().Changed("max-variants") {
		maxVariants, _ = cmd.Flags().GetInt("max-variants")
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	vs, err := variants.Load(path)
	if err != nil {
		return err
	}
	selected := variants.Prioritize(vs, maxVariants)
	if len(selected) < len(vs) {
		a.logger.Info("Variants prioritised",
			zap.Int("loaded", len(vs)),
			zap.Int("selected", len(selected)),
		)
	}

	ctx := cmd.Context()
	c, err := a.wire(ctx)
	if err != nil {
		return err
	}

	dir := stringFlag(cmd, "index-dir", a.cfg.Index.Dir)
	rebuild, _ := cmd.Flags().GetBool("rebuild-index")
	if err := c.pipeline.EnsureIndex(ctx, stringFlag(cmd, "source", a.cfg.Knowledge.Source), dir, rebuild); err != nil {
		return err
	}

	rep, err := c.pipeline.ExplainVariants(ctx, selected, dir, opts)
	if err != nil {
		return err
	}

	outDir, _ := cmd.Flags().GetString("out")
	w, err := explanation.NewWriter(outDir)
	if err != nil {
		return err
	}
	if err := w.WriteExplanations(rep.Explanations); err != nil {
		return err
	}
	if err := w.WriteSummary(rep.Summary); err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(),
		"Explained %d variants (%d degraded), results in %s\n",
		len(rep.Explanations), batch.Count(rep.Items, batch.StatusDegraded), outDir,
	)
	return err
}
