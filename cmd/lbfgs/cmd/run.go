// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/curioloop/owlqn/internal/numdiff"
	"github.com/curioloop/owlqn/internal/problems"
	"github.com/curioloop/owlqn/lbfgs"
)

// Outcome is the result of one problem.
type Outcome struct {
	Problem string
	*lbfgs.Result
}

func runProblems(cmd *cobra.Command, args []string) error {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	config, err := LoadConfig(path, cmd.Flags())
	if err != nil {
		return err
	}

	logger := log.New()
	logger.SetFormatter(&log.TextFormatter{ForceColors: true, FullTimestamp: true})
	logger.SetOutput(cmd.ErrOrStderr())
	level, err := log.ParseLevel(config.LogLevel)
	if err != nil {
		return errors.WithStack(err)
	}
	logger.SetLevel(level)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	outcomes, err := Run(ctx, config, logger)
	if err != nil {
		return err
	}
	return PrintOutcomes(cmd.OutOrStdout(), outcomes)
}

// Run minimizes the configured problems concurrently.
// A problem rejected by the parameter check fails the whole run and cancels the others.
func Run(ctx context.Context, config *Config, logger *log.Logger) ([]Outcome, error) {

	// Resolve every problem before starting.
	probs := make([]*problems.Problem, len(config.Problems))
	for i, name := range config.Problems {
		p, err := problems.Lookup(name, config.Dim)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		probs[i] = p
	}

	g, ctx := errgroup.WithContext(ctx)
	if config.Parallelism > 0 {
		g.SetLimit(config.Parallelism)
	}

	outcomes := make([]Outcome, len(probs))
	for i, p := range probs {
		i, p := i, p
		g.Go(func() error {
			res, err := minimize(ctx, p, config, logger.WithField("problem", p.Name))
			outcomes[i] = Outcome{Problem: p.Name, Result: res}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func minimize(ctx context.Context, p *problems.Problem, config *Config, entry *log.Entry) (*lbfgs.Result, error) {

	param := config.Param
	if param.OrthantwiseC == 0 {
		param.OrthantwiseC = p.OrthantwiseC
	}

	eval := p.Eval
	if config.Gradient != "analytic" {
		method, err := numdiff.ParseMethod(config.Gradient)
		if err != nil {
			return nil, err
		}
		eval = numdiff.Evaluation(p.Value(), method)
	}

	problem := lbfgs.Problem{
		Eval:  eval,
		Param: &param,
		Progress: func(x, g []float64, fx, xNorm, gNorm, step float64, k, ls int) int {
			if ctx.Err() != nil {
				return 1
			}
			return 0
		},
		Logger: optimizerLogger(entry),
	}
	if problem.Logger != nil {
		defer problem.Logger.Msg.(io.Closer).Close()
		defer problem.Logger.Out.(io.Closer).Close()
	}

	entry.Debugf("minimizing %d variables", len(p.X0))
	res := problem.Minimize(p.Start())

	switch {
	case res.Status.Config():
		return res, errors.Wrapf(res.Err(), "problem %s", p.Name)
	case res.Status == lbfgs.Stop && res.Extra != 0:
		return res, errors.Wrapf(ctx.Err(), "problem %s", p.Name)
	case !res.OK:
		entry.Warnf("terminated abnormally: %v", res.Status)
	default:
		entry.Infof("%v after %d iterations, f = %g", res.Status, res.NumIter, res.F)
	}
	return res, nil
}

// optimizerLogger forwards the optimizer log to the entry:
// the messages at debug level and the iteration table at trace level.
func optimizerLogger(entry *log.Entry) *lbfgs.Logger {
	switch entry.Logger.GetLevel() {
	case log.TraceLevel:
		return &lbfgs.Logger{
			Level: lbfgs.LogTrace,
			Msg:   entry.WriterLevel(log.DebugLevel),
			Out:   entry.WriterLevel(log.TraceLevel),
		}
	case log.DebugLevel:
		return &lbfgs.Logger{
			Level: lbfgs.LogLast,
			Msg:   entry.WriterLevel(log.DebugLevel),
			Out:   entry.WriterLevel(log.TraceLevel),
		}
	default:
		return nil
	}
}

// PrintOutcomes writes one row per problem.
func PrintOutcomes(w io.Writer, outcomes []Outcome) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROBLEM\tSTATUS\tITER\tEVAL\tF")
	for _, o := range outcomes {
		fmt.Fprintf(tw, "%s\t%v\t%d\t%d\t%.6e\n", o.Problem, o.Status, o.NumIter, o.NumEval, o.F)
	}
	return errors.WithStack(tw.Flush())
}
