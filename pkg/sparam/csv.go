package sparam

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
)

// WriteCSV emits one row per wavelength with a wavelength_um column
// followed by s_<out>_<in>_re and s_<out>_<in>_im columns per stored
// entry, sorted by out then in.
func (m *Matrix) WriteCSV(w io.Writer) error {
	pairs := m.Pairs()
	cw := csv.NewWriter(w)

	header := make([]string, 0, 1+2*len(pairs))
	header = append(header, "wavelength_um")
	for _, p := range pairs {
		base := "s_" + p.Out + "_" + p.In
		header = append(header, base+"_re", base+"_im")
	}
	if err := cw.Write(header); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write csv header")
	}

	row := make([]string, 0, len(header))
	for i, wl := range m.Wavelengths {
		row = row[:0]
		row = append(row, formatFloat(wl))
		for _, p := range pairs {
			v := m.Data[p][i]
			row = append(row, formatFloat(real(v)), formatFloat(imag(v)))
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "write csv row %d", i+2)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "flush csv")
	}
	return nil
}

// SaveCSV writes the matrix to a CSV file.
func (m *Matrix) SaveCSV(path string) error {
	if err := errors.ValidateOutputPath(path); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := m.WriteCSV(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
	}
	return nil
}

// ReadCSV parses the format WriteCSV emits. The port set is recovered from
// the column names.
func ReadCSV(r io.Reader) (*Matrix, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "sparam csv")
	}
	if len(records) < 2 {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "sparam csv has no data rows")
	}

	header := records[0]
	if len(header) < 3 || header[0] != "wavelength_um" {
		return nil, errors.New(errors.ErrCodeInvalidFormat,
			"sparam csv must start with a wavelength_um column, got %q", header[0])
	}
	if (len(header)-1)%2 != 0 {
		return nil, errors.New(errors.ErrCodeInvalidFormat,
			"sparam csv needs re/im column pairs, got %d data columns", len(header)-1)
	}

	pairs := make([]PortPair, 0, (len(header)-1)/2)
	portSet := make(map[string]bool)
	for c := 1; c < len(header); c += 2 {
		p, err := parseColumn(header[c], "_re")
		if err != nil {
			return nil, err
		}
		q, err := parseColumn(header[c+1], "_im")
		if err != nil {
			return nil, err
		}
		if q != p {
			return nil, errors.New(errors.ErrCodeInvalidFormat,
				"column %q does not pair with %q", header[c+1], header[c])
		}
		pairs = append(pairs, p)
		portSet[p.Out] = true
		portSet[p.In] = true
	}

	wavelengths := make([]float64, 0, len(records)-1)
	series := make([][]complex128, len(pairs))
	for i := range series {
		series[i] = make([]complex128, 0, len(records)-1)
	}
	for i, rec := range records[1:] {
		line := i + 2
		wl, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "line %d column 1", line)
		}
		wavelengths = append(wavelengths, wl)
		for j := range pairs {
			re, err := strconv.ParseFloat(rec[1+2*j], 64)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "line %d column %d", line, 2+2*j)
			}
			im, err := strconv.ParseFloat(rec[2+2*j], 64)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "line %d column %d", line, 3+2*j)
			}
			series[j] = append(series[j], complex(re, im))
		}
	}

	ports := make([]string, 0, len(portSet))
	for p := range portSet {
		ports = append(ports, p)
	}
	sort.Strings(ports)

	m, err := New(wavelengths, ports)
	if err != nil {
		return nil, err
	}
	for j, p := range pairs {
		if err := m.Set(p.Out, p.In, series[j]); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// LoadCSV reads a matrix from a CSV file.
func LoadCSV(path string) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "open %s", path)
	}
	defer f.Close()
	return ReadCSV(f)
}

// parseColumn splits "s_<out>_<in><suffix>" into its pair. Port names with
// underscores are ambiguous here and rejected.
func parseColumn(name, suffix string) (PortPair, error) {
	body, ok := strings.CutPrefix(name, "s_")
	if !ok {
		return PortPair{}, errors.New(errors.ErrCodeInvalidFormat,
			"column %q: want s_<out>_<in>%s", name, suffix)
	}
	body, ok = strings.CutSuffix(body, suffix)
	if !ok {
		return PortPair{}, errors.New(errors.ErrCodeInvalidFormat,
			"column %q: want s_<out>_<in>%s", name, suffix)
	}
	parts := strings.Split(body, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return PortPair{}, errors.New(errors.ErrCodeInvalidFormat,
			"column %q: want s_<out>_<in>%s", name, suffix)
	}
	return PortPair{Out: parts[0], In: parts[1]}, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
