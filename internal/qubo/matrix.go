package qubo

import (
	"math"

	"github.com/katalvlaran/lvlath/matrix"

	"qroute/internal/errs"
)

// Unreachable marks a pair with no transition. Build prices it at the
// penalty, so a path through it costs as much as breaking a constraint.
const Unreachable = math.MaxFloat64

// FromRows copies a square row-major cost table into a dense matrix. +Inf
// entries become Unreachable; NaN and -Inf are rejected.
func FromRows(rows [][]float64) (*matrix.Dense, error) {
	n := len(rows)
	if n == 0 {
		return nil, errs.InvalidInput("empty adjacency matrix")
	}
	m, err := matrix.NewDense(n, n)
	if err != nil {
		return nil, errs.InvalidInput("adjacency matrix: %v", err)
	}
	for i, row := range rows {
		if len(row) != n {
			return nil, errs.InvalidInput("adjacency matrix is not square: row %d has %d entries, want %d", i, len(row), n)
		}
		for j, c := range row {
			if math.IsInf(c, 1) {
				c = Unreachable
			}
			if math.IsNaN(c) || math.IsInf(c, -1) {
				return nil, errs.InvalidInput("adjacency matrix entry (%d,%d) is %v", i, j, c)
			}
			if err := m.Set(i, j, c); err != nil {
				return nil, errs.InvalidInput("adjacency matrix entry (%d,%d): %v", i, j, err)
			}
		}
	}
	return m, nil
}

// rowsOf reads m into a row-major table, validating every entry.
func rowsOf(m matrix.Matrix) ([][]float64, error) {
	if m == nil || m.Rows() == 0 {
		return nil, errs.InvalidInput("empty adjacency matrix")
	}
	if err := matrix.ValidateSquare(m); err != nil {
		return nil, errs.InvalidInput("adjacency matrix is %dx%d, want square", m.Rows(), m.Cols())
	}
	n := m.Rows()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
		for j := range rows[i] {
			c, err := m.At(i, j)
			if err != nil {
				return nil, errs.InvalidInput("adjacency matrix: %v", err)
			}
			if math.IsNaN(c) || math.IsInf(c, -1) {
				return nil, errs.InvalidInput("adjacency matrix entry (%d,%d) is %v", i, j, c)
			}
			if math.IsInf(c, 1) {
				c = Unreachable
			}
			rows[i][j] = c
		}
	}
	return rows, nil
}
