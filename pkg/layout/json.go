package layout

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
)

// ReadComponent loads and validates a component from a JSON file.
func ReadComponent(path string) (*Component, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read component %s", path)
	}
	return DecodeComponent(data)
}

// DecodeComponent parses and validates component JSON.
func DecodeComponent(data []byte) (*Component, error) {
	var c Component
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode component")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// WriteComponent writes the component as indented JSON.
func WriteComponent(c *Component, path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode component %q", c.Name)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write component %s", path)
	}
	return nil
}

// EncodeComponent returns the component's canonical indented JSON.
func EncodeComponent(c *Component) ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode component %q", c.Name)
	}
	return append(data, '\n'), nil
}

// String implements fmt.Stringer with a compact summary, handy in logs.
func (c *Component) String() string {
	return fmt.Sprintf("%s (%d layers, %d ports)", c.Name, len(c.Polygons), len(c.Ports))
}
