package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"kiosk/agent/internal/intent"
	"kiosk/agent/internal/textmatch"
)

func newResolveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <text>",
		Short: "Show how an utterance resolves against the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.loadCatalog()
			if err != nil {
				return err
			}
			printResolution(cmd.OutOrStdout(), intent.NewResolver(cat), strings.Join(args, " "))
			return nil
		},
	}
}

func printResolution(w io.Writer, r *intent.Resolver, text string) {
	fmt.Fprintf(w, "input:      %q\n", text)
	fmt.Fprintf(w, "normalized: %q\n", textmatch.Normalize(text))
	got := r.Resolve(text)
	if got.Found() {
		fmt.Fprintf(w, "intent:     %s %s (score %.2f)\n", got.Kind, got.Key, got.Score)
	} else {
		fmt.Fprintf(w, "intent:     none\n")
	}
	fmt.Fprintf(w, "module scores (accept >= %.2f):\n", intent.AcceptThreshold)
	for _, s := range r.ModuleScores(text) {
		mark := " "
		if s.Score >= intent.AcceptThreshold {
			mark = "*"
		}
		fmt.Fprintf(w, "  %s %-12s %.3f\n", mark, s.Key, s.Score)
	}
}
