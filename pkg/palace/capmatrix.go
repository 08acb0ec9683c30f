package palace

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
)

// CapMatrix is a Maxwell capacitance matrix in farads, with one row and
// column per terminal.
type CapMatrix struct {
	Terminals []string
	M         *mat.Dense
}

// ReadCapMatrix parses a Palace terminal-C.csv file. terminals names the
// rows in solver index order (from Config.Terminals); nil uses the numeric
// indices from the file.
func ReadCapMatrix(path string, terminals []string) (*CapMatrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "open %s", path)
	}
	defer f.Close()
	return ParseCapMatrix(f, terminals)
}

// ParseCapMatrix reads the CSV body: a header line, then one row per
// terminal with the terminal index followed by the matrix row.
func ParseCapMatrix(rd io.Reader, terminals []string) (*CapMatrix, error) {
	cr := csv.NewReader(rd)
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "capacitance csv")
	}
	if len(records) < 2 {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "capacitance csv has no data rows")
	}

	n := len(records) - 1
	if cols := len(records[0]); cols != n+1 {
		return nil, errors.New(errors.ErrCodeInvalidFormat,
			"capacitance csv is %dx%d, want square", n, cols-1)
	}
	if terminals != nil && len(terminals) != n {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"%d terminal names for a %dx%d matrix", len(terminals), n, n)
	}

	m := mat.NewDense(n, n, nil)
	for i, rec := range records[1:] {
		line := i + 2
		if len(rec) != n+1 {
			return nil, errors.New(errors.ErrCodeInvalidFormat,
				"line %d: %d fields, want %d", line, len(rec), n+1)
		}
		for j, field := range rec[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err,
					"line %d column %d", line, j+2)
			}
			m.Set(i, j, v)
		}
	}

	if terminals == nil {
		terminals = make([]string, n)
		for i := range terminals {
			terminals[i] = fmt.Sprint(i + 1)
		}
	}
	names := make([]string, n)
	copy(names, terminals)
	return &CapMatrix{Terminals: names, M: m}, nil
}

func (c *CapMatrix) index(name string) (int, error) {
	for i, t := range c.Terminals {
		if t == name {
			return i, nil
		}
	}
	return 0, errors.New(errors.ErrCodeNotFound, "terminal %q not in capacitance matrix", name)
}

// C returns the Maxwell matrix entry for two terminals.
func (c *CapMatrix) C(a, b string) (float64, error) {
	i, err := c.index(a)
	if err != nil {
		return 0, err
	}
	j, err := c.index(b)
	if err != nil {
		return 0, err
	}
	return c.M.At(i, j), nil
}

// Mutual returns the mutual capacitance between two distinct terminals,
// the negated off-diagonal entry.
func (c *CapMatrix) Mutual(a, b string) (float64, error) {
	if a == b {
		return 0, errors.New(errors.ErrCodeInvalidInput,
			"mutual capacitance needs two distinct terminals, got %q twice", a)
	}
	v, err := c.C(a, b)
	if err != nil {
		return 0, err
	}
	return -v, nil
}

// CheckSymmetric verifies the matrix is symmetric within an absolute
// tolerance, reporting the worst offending pair.
func (c *CapMatrix) CheckSymmetric(tol float64) error {
	n, _ := c.M.Dims()
	var worst float64
	wi, wj := 0, 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if d := math.Abs(c.M.At(i, j) - c.M.At(j, i)); d > worst {
				worst, wi, wj = d, i, j
			}
		}
	}
	if worst > tol {
		return errors.New(errors.ErrCodeInvalidInput,
			"capacitance matrix asymmetric: |C[%s][%s] - C[%s][%s]| = %g exceeds %g",
			c.Terminals[wi], c.Terminals[wj], c.Terminals[wj], c.Terminals[wi], worst, tol)
	}
	return nil
}
