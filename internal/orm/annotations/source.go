// Package annotations provides the key-value metadata bag attached to every
// model element, with separate build-time and runtime storage slots.
package annotations

// ConfigurationSource records why a piece of configuration exists. Higher
// values take precedence over lower ones.
type ConfigurationSource int

const (
	// SourceConvention marks configuration discovered by a convention
	SourceConvention ConfigurationSource = iota
	// SourceDataAnnotation marks configuration read from declarative metadata
	// such as struct tags or definition files
	SourceDataAnnotation
	// SourceExplicit marks configuration set through the fluent builder
	SourceExplicit
)

// String returns the string representation of the configuration source
func (c ConfigurationSource) String() string {
	switch c {
	case SourceConvention:
		return "convention"
	case SourceDataAnnotation:
		return "data_annotation"
	case SourceExplicit:
		return "explicit"
	default:
		return "unknown"
	}
}

// Overrides reports whether configuration from c may replace configuration
// from other.
func (c ConfigurationSource) Overrides(other ConfigurationSource) bool {
	return c >= other
}

// OverridesStrictly reports whether c has strictly higher precedence.
func (c ConfigurationSource) OverridesStrictly(other ConfigurationSource) bool {
	return c > other
}

// Max returns the source with the higher precedence
func Max(a, b ConfigurationSource) ConfigurationSource {
	if a > b {
		return a
	}
	return b
}
