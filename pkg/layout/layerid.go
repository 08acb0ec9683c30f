package layout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
)

// LayerID identifies a GDS layer as a (layer, datatype) pair.
// It is comparable and usable as a map key; its text form is "layer/datatype".
type LayerID struct {
	Layer    int `json:"layer"`
	Datatype int `json:"datatype"`
}

// NewLayerID creates a LayerID from a layer number and datatype.
func NewLayerID(layer, datatype int) LayerID {
	return LayerID{Layer: layer, Datatype: datatype}
}

// String returns the "layer/datatype" form, e.g. "1/0".
func (id LayerID) String() string {
	return fmt.Sprintf("%d/%d", id.Layer, id.Datatype)
}

// IsZero reports whether id is the zero value. The zero id is reserved as
// "unset" (real designs use explicit ids, and synthetic layers such as a
// wafer outline are allocated well above the drawing range).
func (id LayerID) IsZero() bool {
	return id.Layer == 0 && id.Datatype == 0
}

// ParseLayerID parses "layer/datatype" (e.g. "1/0"). A bare "1" is accepted
// as datatype 0, matching KLayout's shorthand.
func ParseLayerID(s string) (LayerID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return LayerID{}, errors.New(errors.ErrCodeInvalidFormat, "layer id cannot be empty")
	}

	layerPart, dtPart, found := strings.Cut(s, "/")
	if !found {
		dtPart = "0"
	}

	layer, err := strconv.Atoi(strings.TrimSpace(layerPart))
	if err != nil {
		return LayerID{}, errors.New(errors.ErrCodeInvalidFormat, "invalid layer id %q", s)
	}
	datatype, err := strconv.Atoi(strings.TrimSpace(dtPart))
	if err != nil {
		return LayerID{}, errors.New(errors.ErrCodeInvalidFormat, "invalid layer id %q", s)
	}
	if layer < 0 || datatype < 0 {
		return LayerID{}, errors.New(errors.ErrCodeInvalidFormat, "layer id %q must be non-negative", s)
	}

	return LayerID{Layer: layer, Datatype: datatype}, nil
}

// MarshalText implements encoding.TextMarshaler so LayerID works as a JSON
// map key.
func (id LayerID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *LayerID) UnmarshalText(text []byte) error {
	parsed, err := ParseLayerID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Less orders LayerIDs by layer number, then datatype.
func (id LayerID) Less(other LayerID) bool {
	if id.Layer != other.Layer {
		return id.Layer < other.Layer
	}
	return id.Datatype < other.Datatype
}
