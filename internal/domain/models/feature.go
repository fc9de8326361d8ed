package models

import "time"

// FeatureMatrix is a row-aligned table of derived features plus label columns.
// Values is row-major: Values[i][j] is feature Columns[j] at Dates[i].
type FeatureMatrix struct {
	Symbol  string
	Columns []string
	Dates   []time.Time
	Values  [][]float64
	Close   []float64

	// Label columns; empty when the matrix was built for inference.
	FuturePrice        []float64
	FutureReturn       []float64
	FutureReturnVolAdj []float64
	Direction          []int
}

// Len returns the number of rows.
func (m *FeatureMatrix) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Values)
}

// Labeled reports whether label columns are populated for every row.
func (m *FeatureMatrix) Labeled() bool {
	return m != nil && len(m.Direction) == len(m.Values) && len(m.Values) > 0
}

// ColumnIndex returns the position of a named feature, or -1.
func (m *FeatureMatrix) ColumnIndex(name string) int {
	for i, c := range m.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column copies a feature column out of the matrix.
func (m *FeatureMatrix) Column(name string) ([]float64, bool) {
	j := m.ColumnIndex(name)
	if j < 0 {
		return nil, false
	}
	out := make([]float64, len(m.Values))
	for i, row := range m.Values {
		out[i] = row[j]
	}
	return out, true
}

// Slice returns rows [from, to). Row slices are shared with the receiver.
func (m *FeatureMatrix) Slice(from, to int) *FeatureMatrix {
	out := &FeatureMatrix{
		Symbol:  m.Symbol,
		Columns: m.Columns,
		Dates:   m.Dates[from:to],
		Values:  m.Values[from:to],
		Close:   m.Close[from:to],
	}
	if m.Labeled() {
		out.FuturePrice = m.FuturePrice[from:to]
		out.FutureReturn = m.FutureReturn[from:to]
		out.FutureReturnVolAdj = m.FutureReturnVolAdj[from:to]
		out.Direction = m.Direction[from:to]
	}
	return out
}
