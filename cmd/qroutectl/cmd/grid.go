package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"qroute/internal/bootstrap"
	"qroute/internal/geo"
)

type gridStats struct {
	Vertices   int     `json:"vertices"`
	Edges      int     `json:"edges"`
	Population int     `json:"populationSamples"`
	Isolated   int     `json:"isolated"`
	MaxDegree  int     `json:"maxDegree"`
	MinCost    float64 `json:"minEdgeCost"`
	MaxCost    float64 `json:"maxEdgeCost"`
}

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Build the configured base grid and print its statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		g, err := bootstrap.BaseGraph(cfg)
		if err != nil {
			return err
		}
		st := statsOf(g)
		return emit(cmd.OutOrStdout(), st, func(w io.Writer) {
			fmt.Fprintf(w, "vertices:   %d (%d isolated, max degree %d)\n", st.Vertices, st.Isolated, st.MaxDegree)
			fmt.Fprintf(w, "edges:      %d, cost %g..%g\n", st.Edges, st.MinCost, st.MaxCost)
			fmt.Fprintf(w, "population: %d samples\n", st.Population)
		})
	},
}

func statsOf(g *geo.Graph) gridStats {
	st := gridStats{Vertices: g.Len(), Edges: g.EdgeCount()}
	if pop := g.Population(); pop != nil {
		st.Population = pop.Len()
	}
	for _, v := range g.Vertices() {
		if v.Degree() == 0 {
			st.Isolated++
		}
		st.MaxDegree = max(st.MaxDegree, v.Degree())
	}
	for i, e := range g.Edges() {
		c := e.Cost
		if i == 0 || c < st.MinCost {
			st.MinCost = c
		}
		st.MaxCost = max(st.MaxCost, c)
	}
	return st
}
