package analytics

import "github.com/shopspring/decimal"

// RunningTotals returns a grid of the same shape where each cell is the
// cumulative sum of its column down the row order. Each column starts
// over from zero, so the first row keeps its raw value.
func RunningTotals(g *Grid) *Grid {
	if g == nil {
		return nil
	}
	out := g.Clone()
	for j := range out.Columns {
		running := decimal.Zero
		for i := range out.Rows {
			running = running.Add(g.Cells[i][j])
			out.Cells[i][j] = running
		}
	}
	return out
}
