package formatting

import (
	"bytes"
	"encoding/json"

	"ocbridge/internal/oauth"
)

// FormatYear renders a model year that may be a number, a string or null.
func FormatYear(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	return string(trimmed)
}

// machineView is the flattened form used by the text encoders.
type machineView struct {
	SerialNumber string `yaml:"serialNumber"`
	Name         string `yaml:"name"`
	Model        string `yaml:"model,omitempty"`
	Type         string `yaml:"type,omitempty"`
	Year         string `yaml:"year,omitempty"`
}

type listingView struct {
	Values    []machineView `yaml:"values"`
	Skipped   int           `yaml:"skipped,omitempty"`
	Truncated bool          `yaml:"truncated,omitempty"`
}

func newListingView(listing *oauth.MachineListing) listingView {
	v := listingView{
		Values:    make([]machineView, 0, len(listing.Machines)),
		Skipped:   listing.Skipped,
		Truncated: listing.Truncated,
	}
	for _, m := range listing.Machines {
		v.Values = append(v.Values, machineView{
			SerialNumber: m.SerialNumber,
			Name:         m.Name,
			Model:        m.Model,
			Type:         m.Type,
			Year:         FormatYear(m.Year),
		})
	}
	return v
}
