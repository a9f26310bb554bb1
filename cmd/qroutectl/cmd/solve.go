package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"qroute/internal/decode"
	"qroute/internal/oracle"
	"qroute/internal/qubo"
)

// Problem is a standalone formulation read from YAML. Unreachable pairs may
// be written as .inf.
type Problem struct {
	Matrix          [][]float64 `yaml:"matrix"`
	Hops            int         `yaml:"hops"`
	Start           int         `yaml:"start"`
	End             int         `yaml:"end"`
	ExclusiveVisits bool        `yaml:"exclusiveVisits"`
	PenaltyFloor    float64     `yaml:"penaltyFloor"`
}

type solveOutput struct {
	Path      []int           `json:"path"`
	Degraded  bool            `json:"degraded"`
	Status    oracle.Status   `json:"status"`
	Value     float64         `json:"value"`
	Oracle    string          `json:"oracle"`
	Seed      int64           `json:"seed,omitempty"`
	Variables int             `json:"variables"`
	Penalty   float64         `json:"penalty"`
	Metrics   *oracle.Metrics `json:"metrics,omitempty"`
}

var (
	solveAlgo string
	solveSeed int64
)

var solveCmd = &cobra.Command{
	Use:   "solve problem.yaml",
	Short: "Formulate and minimize a hop-indexed QUBO from a cost matrix",
	Args:  cobra.ExactArgs(1),
	RunE:  runSolve,
}

func init() {
	solveCmd.Flags().StringVar(&solveAlgo, "algo", "", "oracle (auto, exact, annealing); default from config")
	solveCmd.Flags().Int64Var(&solveSeed, "seed", 0, "annealing seed (0 draws one)")
}

func runSolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	prob, err := readProblem(args[0])
	if err != nil {
		return err
	}
	algo := cfg.Solver.Algorithm
	if solveAlgo != "" {
		algo = solveAlgo
	}
	o, err := oracle.New(algo, cfg.Solver.MaxExactVars)
	if err != nil {
		return err
	}
	opts := cfg.Solver.Options()
	opts.Seed = solveSeed
	out, err := solve(cmd.Context(), prob, o, opts)
	if err != nil {
		return err
	}
	return emit(cmd.OutOrStdout(), out, func(w io.Writer) {
		fmt.Fprintf(w, "path:      %v\n", out.Path)
		fmt.Fprintf(w, "status:    %s (%s)\n", out.Status, out.Oracle)
		fmt.Fprintf(w, "value:     %g\n", out.Value)
		fmt.Fprintf(w, "variables: %d, penalty %g\n", out.Variables, out.Penalty)
		if out.Degraded {
			fmt.Fprintln(w, "warning:   assignment violates the hop constraints")
		}
	})
}

func readProblem(path string) (Problem, error) {
	var p Problem
	b, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	if err := yaml.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("parse %s: %w", path, err)
	}
	return p, nil
}

func solve(ctx context.Context, p Problem, o oracle.Oracle, opts oracle.Options) (solveOutput, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	m, err := qubo.FromRows(p.Matrix)
	if err != nil {
		return solveOutput{}, err
	}
	obj, err := qubo.Build(m, p.Hops, p.Start, p.End, qubo.Options{PenaltyFloor: p.PenaltyFloor, ExclusiveVisits: p.ExclusiveVisits})
	if err != nil {
		return solveOutput{}, err
	}
	res, err := o.Minimize(ctx, obj, opts)
	if err != nil {
		return solveOutput{}, err
	}
	out := solveOutput{
		Status:    res.Status,
		Value:     res.Value,
		Oracle:    res.Oracle,
		Seed:      res.Seed,
		Variables: obj.Len(),
		Penalty:   obj.Penalty,
		Metrics:   res.Metrics,
	}
	if !res.Status.OK() {
		return out, fmt.Errorf("%s reported %s", res.Oracle, res.Status)
	}
	path, err := decode.Decode(res.Assignment, obj.Layout)
	if err != nil {
		return out, err
	}
	out.Path = path.Vertices
	out.Degraded = path.Degraded
	return out, nil
}
