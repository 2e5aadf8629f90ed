// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/curioloop/owlqn/internal/problems"
	"github.com/curioloop/owlqn/lbfgs"
)

func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "lbfgs",
		Short:        "Minimize benchmark problems with L-BFGS and OWL-QN.",
		SilenceUsage: true,
	}
	cmd.AddCommand(runCmd(), listCmd())
	return cmd
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured problems concurrently and print a summary.",
		Args:  cobra.NoArgs,
		RunE:  runProblems,
	}
	cmd.Flags().String("config", "", "Path of the configuration file.")
	cmd.Flags().StringSlice("problems", []string{"rosenbrock"}, "Problems to minimize.")
	cmd.Flags().Int("dim", 10, "Dimension of every problem.")
	cmd.Flags().Int("parallelism", 0, "Maximum number of concurrent runs. Unlimited if 0.")
	cmd.Flags().String("log-level", "info", "Log level, debug and trace print the optimizer log.")
	cmd.Flags().String("gradient", "analytic", "Gradient: analytic, or the finite difference forward or central.")
	cmd.Flags().String("linesearch", lbfgs.DefaultParam.LineSearch.String(), "Line search: more-thuente, armijo, wolfe or strong-wolfe.")
	cmd.Flags().Int("max-iterations", lbfgs.DefaultParam.MaxIterations, "Maximum number of iterations. Unlimited if 0.")
	cmd.Flags().Float64("orthantwise-c", lbfgs.DefaultParam.OrthantwiseC, "Coefficient of the L1 norm, enables OWL-QN when positive.")
	return cmd
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available problems.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range problems.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}
