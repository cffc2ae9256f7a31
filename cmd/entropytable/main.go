// Command entropytable regenerates the entropy threshold table embedded in
// pkg/entropy and reports percentile cut-offs for arbitrary alphabets.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/security-cli/secretshield/pkg/entropy"
	"github.com/security-cli/secretshield/pkg/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var seed int64
	rootCmd := &cobra.Command{
		Use:           "entropytable",
		Short:         "Sample random strings to build entropy thresholds",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(cmd.ErrOrStderr(), "info", false)
		},
	}
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 0, "Random seed (0 uses the current time)")

	rng := func() *rand.Rand {
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		logging.Info().Int64("seed", seed).Msg("sampling")
		return rand.New(rand.NewSource(seed))
	}

	rootCmd.AddCommand(generateCmd(rng), varianceCmd(rng))
	return rootCmd
}

func generateCmd(rng func() *rand.Rand) *cobra.Command {
	var (
		minLen, maxLen, runs int
		output               string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a table for every character class and length",
		RunE: func(cmd *cobra.Command, args []string) error {
			if minLen < 1 || maxLen < minLen || runs < 2 {
				return fmt.Errorf("need 1 <= min <= max and runs >= 2")
			}
			table := entropy.GenerateTable(rng(), minLen, maxLen, runs)

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return json.NewEncoder(w).Encode(table)
		},
	}
	cmd.Flags().IntVar(&minLen, "min", 1, "Shortest string length")
	cmd.Flags().IntVar(&maxLen, "max", 128, "Longest string length")
	cmd.Flags().IntVar(&runs, "runs", 10000, "Random strings sampled per class and length")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func varianceCmd(rng func() *rand.Rand) *cobra.Command {
	var runs int
	cmd := &cobra.Command{
		Use:     "variance <alphabet> <length>",
		Short:   "Print the mean, deviation and percentile cut-offs for one alphabet",
		Example: `  entropytable variance abcdefghijklmnopqrstuvwxyz0123456789 40`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			length, err := strconv.Atoi(args[1])
			if err != nil || length < 1 {
				return fmt.Errorf("invalid length %q", args[1])
			}
			s := entropy.Sample(rng(), args[0], length, runs)

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "mean: %.3f\n", s.Mean)
			fmt.Fprintf(w, "stdev: %.3f\n", s.Stdev)
			for _, p := range entropy.Percentiles() {
				cut, _ := s.Cutoff(p)
				fmt.Fprintf(w, "%v%%: %.3f\n", p, cut)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&runs, "runs", 10000, "Random strings sampled")
	return cmd
}
