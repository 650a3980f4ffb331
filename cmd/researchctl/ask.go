package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

func (c *cli) askCmd() *cobra.Command {
	var (
		topic    string
		question string
		topK     int
	)
	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Rank stored paper fragments on a topic against a question",
		Long: `Ask runs the same question answering as POST /qa against the configured
store and prints the JSON answer.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := c.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			answer, err := a.Research.Answer(ctx, topic, question, topK)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), answer)
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "", "topic used to select stored papers")
	cmd.Flags().StringVar(&question, "question", "", "question to rank fragments against")
	cmd.Flags().IntVar(&topK, "top-k", 0, "number of fragments (default research.top_k)")
	_ = cmd.MarkFlagRequired("question")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
