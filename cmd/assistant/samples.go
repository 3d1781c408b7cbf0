package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"chaos-car/internal/application"
)

// sampleInputs exercise misspellings, nonsense and every action.
var sampleInputs = []string{
	"turn lft",
	"go right",
	"banana sandwich drive",
	"stop now",
	"play music please",
	"ac off",
	"jump in the sky backwards",
}

var samplesCmd = &cobra.Command{
	Use:   "samples",
	Short: "Run the built-in sample commands at full chaos",
	RunE:  runSamples,
}

func runSamples(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Log)

	c, err := build(cmd.Context(), cfg, logger, buildOptions{})
	if err != nil {
		return fmt.Errorf("building assistant: %w", err)
	}
	defer c.Close()

	return writeSamples(cmd.Context(), cmd.OutOrStdout(), c.extractor, c.chaos)
}

// writeSamples shows what extraction and full chaos make of each sample.
// Nothing is dispatched, so the vehicle is left alone.
func writeSamples(ctx context.Context, out io.Writer, extractor application.IntentExtractor, transformer application.IntentTransformer) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INPUT\tSOURCE\tMODEL\tFINAL\tEXTRA")

	for _, input := range sampleInputs {
		extraction := extractor.GetIntent(ctx, input)
		final := transformer.Apply(extraction.Intent, 100)
		fmt.Fprintf(w, "%s\t%s\t%s %s\t%s %s\t%s\n",
			input,
			extraction.Source,
			extraction.Intent.Action, extraction.Intent.TargetOr("-"),
			final.Action, final.TargetOr("-"),
			final.ExtraOr("-"),
		)
	}

	return w.Flush()
}
