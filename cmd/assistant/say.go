package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"chaos-car/internal/application"
)

var sayChaos float64

var sayCmd = &cobra.Command{
	Use:   "say <text...>",
	Short: "Run one typed command through the pipeline and print the result",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSay,
}

func init() {
	sayCmd.Flags().Float64Var(&sayChaos, "chaos", -1, "chaos percentage for this command (default: config)")
}

func runSay(cmd *cobra.Command, args []string) error {
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

	text := strings.Join(args, " ")

	var res application.Result
	if cmd.Flags().Changed("chaos") {
		res, err = c.assistant.ProcessWithChaos(cmd.Context(), text, sayChaos)
	} else {
		res, err = c.assistant.Process(cmd.Context(), text)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}

	if res.Speak && c.queue != nil {
		if err := c.queue.Enqueue(res.Response); err != nil {
			return fmt.Errorf("queueing speech: %w", err)
		}
		return c.queue.Flush(cmd.Context())
	}
	return nil
}
