package formatting

import (
	"fmt"

	"ocbridge/internal/oauth"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter provides YAML output formatting
type YAMLFormatter struct {
	options Options
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(options Options) Formatter {
	return &YAMLFormatter{
		options: options,
	}
}

// FormatMachines writes the listing as a YAML document.
func (f *YAMLFormatter) FormatMachines(listing *oauth.MachineListing) error {
	enc := yaml.NewEncoder(f.options.out())
	enc.SetIndent(2)
	if err := enc.Encode(newListingView(listing)); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return enc.Close()
}

// SetOptions updates the formatter options
func (f *YAMLFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *YAMLFormatter) GetOptions() Options {
	return f.options
}
