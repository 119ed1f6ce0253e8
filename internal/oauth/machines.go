package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"ocbridge/internal/config"
	"ocbridge/pkg/logging"
	pkgstrings "ocbridge/pkg/strings"
)

// equipmentPageSize is the itemLimit of the single page that is fetched.
const equipmentPageSize = 1000

// equipmentKind is decoded first so records of other kinds are dropped
// without looking at their remaining fields.
type equipmentKind struct {
	Type string `json:"@type"`
}

// machineRecord is the part of a Machine record that is read.
type machineRecord struct {
	IsSerialNumberCertified bool            `json:"isSerialNumberCertified"`
	Archived                bool            `json:"archived"`
	Decommissioned          bool            `json:"decommissioned"`
	Stolen                  bool            `json:"stolen"`
	SerialNumber            string          `json:"serialNumber"`
	Name                    string          `json:"name"`
	Model                   *namedRef       `json:"model"`
	MachineType             *namedRef       `json:"type"`
	ModelYear               json.RawMessage `json:"modelYear"`
}

type namedRef struct {
	Name string `json:"name"`
}

func (n *namedRef) name() string {
	if n == nil {
		return ""
	}
	return n.Name
}

type equipmentPage struct {
	Values []json.RawMessage `json:"values"`
}

// MachinesURL builds the equipment query for one organization.
func MachinesURL(equipmentURL, orgID string, embedDevices bool) string {
	if equipmentURL == "" {
		equipmentURL = config.DefaultEquipmentURL
	}
	var b strings.Builder
	b.WriteString(equipmentURL)
	if strings.Contains(equipmentURL, "?") {
		b.WriteString("&")
	} else {
		b.WriteString("?")
	}
	b.WriteString("organizationIds=")
	b.WriteString(url.QueryEscape(orgID))
	if embedDevices {
		b.WriteString("&embed=devices")
	}
	fmt.Fprintf(&b, "&pageOffset=0&itemLimit=%d", equipmentPageSize)
	return b.String()
}

// GetMachinesByOrg returns the active, serial-certified machines of an
// organization.
func (c *Client) GetMachinesByOrg(ctx context.Context, orgID string, embedDevices bool) ([]MachineSummary, error) {
	listing, err := c.ListMachines(ctx, orgID, embedDevices)
	if err != nil {
		return nil, err
	}
	return listing.Machines, nil
}

// ListMachines fetches one page of equipment and filters it. Records that
// cannot be decoded are skipped and counted rather than failing the listing.
func (c *Client) ListMachines(ctx context.Context, orgID string, embedDevices bool) (*MachineListing, error) {
	resourceURL := MachinesURL(c.cfg.EquipmentURL, orgID, embedDevices)

	body, err := c.CallResource(ctx, resourceURL)
	if err != nil {
		return nil, err
	}

	var page equipmentPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, &ResourceAPIError{URL: resourceURL, StatusCode: 200, Body: pkgstrings.Truncate(string(body), pkgstrings.DefaultBodyMaxLen), Err: err}
	}

	listing := filterMachines(page.Values)
	if len(page.Values) >= equipmentPageSize {
		listing.Truncated = true
		logging.Warn("OAuth", "Equipment page for org %s returned %d records; further records may exist and are not listed",
			orgID, len(page.Values))
	}
	if listing.Skipped > 0 {
		logging.Debug("OAuth", "Skipped %d undecodable equipment records for org %s", listing.Skipped, orgID)
	}
	return listing, nil
}

// filterMachines keeps active, serial-certified Machine records. Skipped
// counts records that could not be classified and Machine records whose
// fields failed to decode; other equipment kinds are dropped uncounted.
func filterMachines(values []json.RawMessage) *MachineListing {
	listing := &MachineListing{Machines: []MachineSummary{}}
	for _, raw := range values {
		var kind equipmentKind
		if err := json.Unmarshal(raw, &kind); err != nil {
			listing.Skipped++
			continue
		}
		if kind.Type != "Machine" {
			continue
		}
		var rec machineRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			listing.Skipped++
			continue
		}
		if !rec.IsSerialNumberCertified || rec.Archived || rec.Decommissioned || rec.Stolen {
			continue
		}
		listing.Machines = append(listing.Machines, MachineSummary{
			SerialNumber: rec.SerialNumber,
			Name:         rec.Name,
			Model:        rec.Model.name(),
			Type:         rec.MachineType.name(),
			Year:         rec.ModelYear,
		})
	}
	return listing
}
