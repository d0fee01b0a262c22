package ir

// Matrix is a dense row-major channel-by-cloud array.
type Matrix struct {
	Rows int
	Cols int
	Data []float64
}

// NewMatrix allocates a zeroed rows-by-cols matrix.
func NewMatrix(rows, cols int) Matrix {
	return Matrix{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// At returns the element at row r, column c.
func (m Matrix) At(r, c int) float64 {
	return m.Data[r*m.Cols+c]
}

// Set stores v at row r, column c.
func (m Matrix) Set(r, c int, v float64) {
	m.Data[r*m.Cols+c] = v
}

// Row returns row r as a slice sharing the matrix storage.
func (m Matrix) Row(r int) []float64 {
	return m.Data[r*m.Cols : (r+1)*m.Cols]
}

// ScaleCols returns a new matrix with column c multiplied by w[c].
// Panics if len(w) != m.Cols.
func (m Matrix) ScaleCols(w []float64) Matrix {
	if len(w) != m.Cols {
		panic("ir: ScaleCols weight length mismatch")
	}
	out := NewMatrix(m.Rows, m.Cols)
	for r := 0; r < m.Rows; r++ {
		src, dst := m.Row(r), out.Row(r)
		for c, v := range src {
			dst[c] = v * w[c]
		}
	}
	return out
}

// SumCols returns the per-row sum over columns.
func (m Matrix) SumCols() []float64 {
	out := make([]float64, m.Rows)
	for r := 0; r < m.Rows; r++ {
		var s float64
		for _, v := range m.Row(r) {
			s += v
		}
		out[r] = s
	}
	return out
}
