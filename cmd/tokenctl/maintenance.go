package main

import (
	"encoding/json"
	"sort"

	"github.com/spf13/cobra"
)

func newCleanupCmd(get func() *toolkit) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove revocation entries past their natural expiry",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := get().registry.CleanupExpired(cmd.Context())
			if err != nil {
				return err
			}
			successColor.Fprintf(cmd.OutOrStdout(), "removed %d expired entries\n", n)
			return nil
		},
	}
}

func newStatsCmd(get func() *toolkit) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Count active revocations by reason",
		RunE: func(cmd *cobra.Command, args []string) error {
			counts, err := get().registry.Stats(cmd.Context())
			if err != nil {
				return err
			}
			byReason := make(map[string]int64, len(counts))
			var total int64
			for r, n := range counts {
				byReason[string(r)] = n
				total += n
			}

			w := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(w).Encode(map[string]interface{}{"total": total, "by_reason": byReason})
			}
			reasons := make([]string, 0, len(byReason))
			for r := range byReason {
				reasons = append(reasons, r)
			}
			sort.Strings(reasons)
			for _, r := range reasons {
				printField(w, r, byReason[r])
			}
			printField(w, "TOTAL", total)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}
