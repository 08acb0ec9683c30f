package sparam

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
)

// WriteTouchstone emits a Touchstone file with wavelength in micrometers
// and real/imaginary entries: "# um S RI R 50". Each wavelength block is
// written row-major, one matrix row per line. The full NxN matrix must be
// present.
func (m *Matrix) WriteTouchstone(w io.Writer) error {
	n := len(m.Ports)
	if n == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "matrix has no ports")
	}
	for _, out := range m.Ports {
		for _, in := range m.Ports {
			if _, ok := m.Data[PortPair{Out: out, In: in}]; !ok {
				return errors.New(errors.ErrCodeInvalidInput,
					"touchstone needs the full matrix: missing S[%s,%s]", out, in)
			}
		}
	}

	var buf bytes.Buffer
	for i, p := range m.Ports {
		fmt.Fprintf(&buf, "! Port %d = %s\n", i+1, p)
	}
	buf.WriteString("# um S RI R 50\n")

	fields := make([]string, 0, 1+2*n)
	for k, wl := range m.Wavelengths {
		for ri, out := range m.Ports {
			fields = fields[:0]
			if ri == 0 {
				fields = append(fields, formatFloat(wl))
			}
			for _, in := range m.Ports {
				v := m.Data[PortPair{Out: out, In: in}][k]
				fields = append(fields, formatFloat(real(v)), formatFloat(imag(v)))
			}
			buf.WriteString(strings.Join(fields, " "))
			buf.WriteByte('\n')
		}
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write touchstone")
	}
	return nil
}

// SaveTouchstone writes a Touchstone file.
func (m *Matrix) SaveTouchstone(path string) error {
	if err := errors.ValidateOutputPath(path); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := m.WriteTouchstone(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
	}
	return nil
}

type touchstoneToken struct {
	text string
	line int
}

// ReadTouchstone parses the format WriteTouchstone emits for an
// nPorts-port network. Port names come from "! Port i = name" comments
// when a full set is present, else o1..oN. Only the um/S/RI option set is
// supported.
func ReadTouchstone(r io.Reader, nPorts int) (*Matrix, error) {
	if nPorts < 1 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "port count %d must be >= 1", nPorts)
	}

	var (
		toks    []touchstoneToken
		names   = make(map[int]string)
		wlScale float64
	)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '!'); i >= 0 {
			comment := strings.TrimSpace(text[i+1:])
			if idx, name, ok := parsePortComment(comment); ok {
				names[idx] = name
			}
			text = text[:i]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "#") {
			if wlScale != 0 {
				continue
			}
			scale, err := parseOptionLine(text, line)
			if err != nil {
				return nil, err
			}
			wlScale = scale
			continue
		}
		for _, f := range strings.Fields(text) {
			toks = append(toks, touchstoneToken{text: f, line: line})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read touchstone")
	}
	if wlScale == 0 {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "touchstone file has no option line")
	}

	block := 1 + 2*nPorts*nPorts
	if len(toks) == 0 || len(toks)%block != 0 {
		return nil, errors.New(errors.ErrCodeInvalidFormat,
			"%d data values do not fill %d-port records of %d values", len(toks), nPorts, block)
	}
	nWl := len(toks) / block

	ports := make([]string, nPorts)
	for i := range ports {
		name, ok := names[i+1]
		if !ok {
			ports = defaultPorts(nPorts)
			break
		}
		ports[i] = name
	}

	wavelengths := make([]float64, 0, nWl)
	series := make([][]complex128, nPorts*nPorts)
	for i := range series {
		series[i] = make([]complex128, 0, nWl)
	}
	pos := 0
	next := func() (float64, error) {
		tok := toks[pos]
		pos++
		v, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return 0, errors.Wrap(errors.ErrCodeInvalidFormat, err, "line %d", tok.line)
		}
		return v, nil
	}
	for k := 0; k < nWl; k++ {
		wl, err := next()
		if err != nil {
			return nil, err
		}
		wavelengths = append(wavelengths, wl*wlScale)
		for ri := 0; ri < nPorts; ri++ {
			for ci := 0; ci < nPorts; ci++ {
				re, err := next()
				if err != nil {
					return nil, err
				}
				im, err := next()
				if err != nil {
					return nil, err
				}
				series[ri*nPorts+ci] = append(series[ri*nPorts+ci], complex(re, im))
			}
		}
	}

	m, err := New(wavelengths, ports)
	if err != nil {
		return nil, err
	}
	for ri, out := range ports {
		for ci, in := range ports {
			if err := m.Set(out, in, series[ri*nPorts+ci]); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

var touchstoneExt = regexp.MustCompile(`(?i)\.s(\d+)p$`)

// LoadTouchstone reads a Touchstone file, inferring the port count from
// the .sNp extension.
func LoadTouchstone(path string) (*Matrix, error) {
	match := touchstoneExt.FindStringSubmatch(filepath.Base(path))
	if match == nil {
		return nil, errors.New(errors.ErrCodeInvalidPath,
			"cannot infer port count from %q, want a .sNp extension", path)
	}
	nPorts, err := strconv.Atoi(match[1])
	if err != nil || nPorts < 1 {
		return nil, errors.New(errors.ErrCodeInvalidPath, "bad port count in %q", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "open %s", path)
	}
	defer f.Close()
	return ReadTouchstone(f, nPorts)
}

// parsePortComment matches "Port 2 = o2" comment bodies.
func parsePortComment(comment string) (int, string, bool) {
	fields := strings.Fields(comment)
	if len(fields) != 4 || fields[0] != "Port" || fields[2] != "=" {
		return 0, "", false
	}
	idx, err := strconv.Atoi(fields[1])
	if err != nil || idx < 1 {
		return 0, "", false
	}
	return idx, fields[3], true
}

// parseOptionLine returns the factor that takes the file's wavelength unit
// to micrometers.
func parseOptionLine(text string, line int) (float64, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimPrefix(text, "#")))
	// Defaults per the Touchstone spec when tokens are omitted.
	unit, param, format := "ghz", "s", "ma"
	for i := 0; i < len(fields); i++ {
		switch fields[i] {
		case "hz", "khz", "mhz", "ghz", "um", "nm":
			unit = fields[i]
		case "s", "y", "z", "g", "h":
			param = fields[i]
		case "ri", "ma", "db":
			format = fields[i]
		case "r":
			i++ // reference resistance value, ignored
		default:
			return 0, errors.New(errors.ErrCodeInvalidFormat,
				"line %d: unknown option token %q", line, fields[i])
		}
	}
	if unit != "um" && unit != "nm" {
		return 0, errors.New(errors.ErrCodeUnsupported,
			"line %d: frequency unit %q, only wavelength files (um, nm) are supported", line, unit)
	}
	if param != "s" {
		return 0, errors.New(errors.ErrCodeUnsupported, "line %d: %q parameters, want S", line, param)
	}
	if format != "ri" {
		return 0, errors.New(errors.ErrCodeUnsupported,
			"line %d: %q format, only RI is supported", line, format)
	}
	if unit == "nm" {
		return 1e-3, nil
	}
	return 1, nil
}

func defaultPorts(n int) []string {
	ports := make([]string, n)
	for i := range ports {
		ports[i] = fmt.Sprintf("o%d", i+1)
	}
	return ports
}
