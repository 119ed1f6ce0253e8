package formatting

import (
	"encoding/json"

	"ocbridge/internal/oauth"
)

// JSONFormatter provides structured JSON output formatting. Records are
// written as returned by the API so the year keeps its original JSON type.
type JSONFormatter struct {
	options Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(options Options) Formatter {
	return &JSONFormatter{
		options: options,
	}
}

type jsonListing struct {
	Values    []oauth.MachineSummary `json:"values"`
	Skipped   int                    `json:"skipped,omitempty"`
	Truncated bool                   `json:"truncated,omitempty"`
}

// FormatMachines writes the listing as indented JSON.
func (f *JSONFormatter) FormatMachines(listing *oauth.MachineListing) error {
	out := jsonListing{
		Values:    listing.Machines,
		Skipped:   listing.Skipped,
		Truncated: listing.Truncated,
	}
	if out.Values == nil {
		out.Values = []oauth.MachineSummary{}
	}
	enc := json.NewEncoder(f.options.out())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// SetOptions updates the formatter options
func (f *JSONFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *JSONFormatter) GetOptions() Options {
	return f.options
}
