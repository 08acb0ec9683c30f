package layerstack

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
)

// Load reads a layer stack from a TOML techfile.
func Load(path string) (LayerStack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LayerStack{}, errors.Wrap(errors.ErrCodeInvalidPath, err, "read techfile %s", path)
	}
	stack, err := Decode(data)
	if err != nil {
		return LayerStack{}, errors.Wrap(errors.GetCode(err), err, "techfile %s", path)
	}
	return stack, nil
}

// Decode parses a TOML techfile. Every layer must carry a GDS id; zmin and
// thickness stay optional (a layer without them cannot resolve to 3D, which
// is legitimate for marker and DRC layers).
func Decode(data []byte) (LayerStack, error) {
	var file struct {
		Layers map[string]Layer `toml:"layers"`
	}
	if err := toml.Unmarshal(data, &file); err != nil {
		return LayerStack{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse techfile")
	}
	if len(file.Layers) == 0 {
		return LayerStack{}, errors.New(errors.ErrCodeInvalidFormat, "techfile defines no layers")
	}

	stack := LayerStack{Layers: file.Layers}
	for _, name := range stack.Names() {
		l := stack.Layers[name]
		if l.GDS.IsZero() {
			return LayerStack{}, errors.New(errors.ErrCodeInvalidLayer, "layer %q missing gds id", name)
		}
		if err := l.Validate(name); err != nil {
			return LayerStack{}, err
		}
	}
	return stack, nil
}
