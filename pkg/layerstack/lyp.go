package layerstack

import (
	"encoding/xml"
	"os"
	"sort"
	"strings"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/layout"
)

// lypProperties mirrors one <properties> entry of a KLayout layer-properties
// file. Only the drawing name and GDS source are of interest here.
type lypProperties struct {
	XMLName xml.Name `xml:"properties"`
	Name    string   `xml:"name"`
	Source  string   `xml:"source"`
}

type lypFile struct {
	XMLName    xml.Name        `xml:"layer-properties"`
	Properties []lypProperties `xml:"properties"`
}

// ReadLyp extracts name -> GDS id pairs from a KLayout .lyp file.
// Only "<base>.drawing" entries are taken; markers, pins, and labels are
// skipped. The returned names are the bare base names.
func ReadLyp(path string) (map[string]layout.LayerID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read lyp %s", path)
	}
	ids, err := DecodeLyp(data)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "lyp %s", path)
	}
	return ids, nil
}

// DecodeLyp parses KLayout layer-properties XML.
func DecodeLyp(data []byte) (map[string]layout.LayerID, error) {
	var file lypFile
	if err := xml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse layer properties")
	}

	ids := make(map[string]layout.LayerID)
	for _, prop := range file.Properties {
		base, ok := drawingName(prop.Name)
		if !ok {
			continue
		}
		// Sources look like "1/0@1"; the trailing @ selects the layout index.
		source, _, _ := strings.Cut(prop.Source, "@")
		id, err := layout.ParseLayerID(source)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "layer %q source %q", prop.Name, prop.Source)
		}
		if existing, dup := ids[base]; dup && existing != id {
			return nil, errors.New(errors.ErrCodeInvalidFormat,
				"layer %q mapped to both %s and %s", base, existing, id)
		}
		ids[base] = id
	}

	if len(ids) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "layer properties contain no drawing layers")
	}
	return ids, nil
}

// drawingName splits "core.drawing" into ("core", true).
func drawingName(name string) (string, bool) {
	parts := strings.Split(strings.TrimSpace(name), ".")
	if len(parts) != 2 || parts[1] != "drawing" || parts[0] == "" {
		return "", false
	}
	return parts[0], true
}

// MergeProperties combines lyp name -> id pairs with a stack carrying
// z/material data. Names present in both must agree on the GDS id (a zero id
// on the stack side is filled in from the lyp); lyp-only names are added as
// z-less layers; stack-only names pass through unchanged.
func MergeProperties(ids map[string]layout.LayerID, stack LayerStack) (LayerStack, error) {
	merged := make(map[string]Layer, len(stack.Layers)+len(ids))
	for name, l := range stack.Layers {
		merged[name] = l
	}

	names := make([]string, 0, len(ids))
	for name := range ids {
		names = append(names, name)
	}
	// Deterministic merge order so the first conflict reported is stable.
	sort.Strings(names)

	for _, name := range names {
		id := ids[name]
		if err := errors.ValidateLayerName(name); err != nil {
			return LayerStack{}, err
		}
		existing, ok := merged[name]
		if !ok {
			merged[name] = Layer{GDS: id}
			continue
		}
		if existing.GDS.IsZero() {
			existing.GDS = id
			merged[name] = existing
			continue
		}
		if existing.GDS != id {
			return LayerStack{}, errors.New(errors.ErrCodeInvalidLayer,
				"layer %q: techfile gds %s conflicts with layer properties %s", name, existing.GDS, id)
		}
	}

	out := LayerStack{Layers: merged}
	if err := out.Validate(); err != nil {
		return LayerStack{}, err
	}
	return out, nil
}
