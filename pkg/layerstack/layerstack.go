package layerstack

import (
	"sort"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/layout"
)

// LayerStack is a named table of layers. The zero value is an empty stack.
type LayerStack struct {
	Layers map[string]Layer `json:"layers" toml:"layers"`
}

// New creates a stack from a layer table.
func New(layers map[string]Layer) LayerStack {
	return LayerStack{Layers: layers}
}

// Names returns the layer names sorted ascending, for deterministic
// iteration.
func (s LayerStack) Names() []string {
	names := make([]string, 0, len(s.Layers))
	for name := range s.Layers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the named layer.
func (s LayerStack) Get(name string) (Layer, error) {
	l, ok := s.Layers[name]
	if !ok {
		return Layer{}, errors.New(errors.ErrCodeLayerNotFound, "layer stack has no layer %q", name)
	}
	return l, nil
}

// Has reports whether the named layer exists.
func (s LayerStack) Has(name string) bool {
	_, ok := s.Layers[name]
	return ok
}

// ByGDS returns the names of all layers sharing the given GDS id, sorted.
// Port reference layers match physical layers through this: several stack
// entries (e.g. a rib and its slab) may share one GDS id.
func (s LayerStack) ByGDS(id layout.LayerID) []string {
	var names []string
	for name, l := range s.Layers {
		if l.GDS == id {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// WithLayer returns a copy of the stack with the named layer added or
// replaced. The receiver is never mutated; the resolver uses this to inject
// synthetic layers such as a wafer outline.
func (s LayerStack) WithLayer(name string, l Layer) LayerStack {
	layers := make(map[string]Layer, len(s.Layers)+1)
	for k, v := range s.Layers {
		layers[k] = v
	}
	layers[name] = l
	return LayerStack{Layers: layers}
}

// Validate checks every layer and rejects duplicate GDS ids mapped to the
// same name-free conflict cases a techfile merge can produce.
func (s LayerStack) Validate() error {
	for _, name := range s.Names() {
		if err := s.Layers[name].Validate(name); err != nil {
			return err
		}
	}
	return nil
}

// ZExtent returns the vertical interval spanned by all layers with defined
// z, sorted ascending. ok is false when no layer has a defined z.
func (s LayerStack) ZExtent() (lo, hi float64, ok bool) {
	first := true
	for _, l := range s.Layers {
		zlo, zhi, has := l.ZRange()
		if !has {
			continue
		}
		if first {
			lo, hi = zlo, zhi
			first = false
			continue
		}
		if zlo < lo {
			lo = zlo
		}
		if zhi > hi {
			hi = zhi
		}
	}
	return lo, hi, !first
}
