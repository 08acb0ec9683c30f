package errors

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

// ValidateName validates a user-supplied identifier (layer, port, or material
// name) loaded from a component or techfile.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path separators (names end up in cache paths and physical-group labels)
//   - Maximum length of 128 characters
func ValidateName(kind, name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "%s name cannot be empty", kind)
	}

	if len(name) > 128 {
		return New(ErrCodeInvalidInput, "%s name too long (max 128 characters)", kind)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "%s name contains invalid control characters", kind)
		}
	}

	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidInput, "%s name cannot contain path separators: %q", kind, name)
	}

	return nil
}

// layerNameRegex matches layer-stack entry names as they appear in PDK
// techfiles ("core", "slab90", "via_contact", "metal2.drawing").
var layerNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateLayerName validates a layer-stack entry name.
func ValidateLayerName(name string) error {
	if err := ValidateName("layer", name); err != nil {
		return err
	}

	if !layerNameRegex.MatchString(name) {
		return New(ErrCodeInvalidLayer, "invalid layer name: %q", name)
	}

	return nil
}

// ValidateFinite rejects NaN and infinite values. Padding, extension, and
// z-stack parameters must always be finite; a NaN that slips through here
// would propagate silently into every derived bounding box.
func ValidateFinite(what string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return New(ErrCodeInvalidConfig, "%s must be finite, got %v", what, v)
	}
	return nil
}

// ValidateNonNegative rejects NaN, infinite, and negative values.
func ValidateNonNegative(what string, v float64) error {
	if err := ValidateFinite(what, v); err != nil {
		return err
	}
	if v < 0 {
		return New(ErrCodeInvalidConfig, "%s must be >= 0, got %v", what, v)
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}

// ValidateOutputPath validates a user-supplied output file path.
// It rejects empty paths and null bytes but allows absolute paths, since
// output files may legitimately live anywhere the user can write.
func ValidateOutputPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "output path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "output path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "output path contains invalid characters")
		}
	}

	return nil
}
