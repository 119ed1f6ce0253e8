package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mixedEquipmentPage = `{
  "values": [
    {"@type": "Implement", "isSerialNumberCertified": true, "serialNumber": "IMP1", "name": "Planter"},
    {"@type": "Machine", "isSerialNumberCertified": false, "serialNumber": "UNC1", "name": "Uncertified"},
    {"@type": "Machine", "isSerialNumberCertified": true, "archived": true, "serialNumber": "ARC1", "name": "Archived"},
    {"@type": "Machine", "isSerialNumberCertified": true, "decommissioned": true, "serialNumber": "DEC1"},
    {"@type": "Machine", "isSerialNumberCertified": true, "stolen": true, "serialNumber": "STO1"},
    {"@type": "Machine", "isSerialNumberCertified": true, "archived": false,
     "serialNumber": "1RW8370RCKD123456", "name": "Tractor 12",
     "model": {"name": "8370R"}, "type": {"name": "Tractor"}, "modelYear": 2019,
     "telematicsState": "active", "id": "998877"},
    {"@type": "Machine", "isSerialNumberCertified": true, "name": {"not": "a string"}},
    "not even an object"
  ]
}`

func TestFilterMachines(t *testing.T) {
	var page equipmentPage
	require.NoError(t, json.Unmarshal([]byte(mixedEquipmentPage), &page))

	listing := filterMachines(page.Values)
	require.Len(t, listing.Machines, 1)
	assert.Equal(t, 2, listing.Skipped)

	m := listing.Machines[0]
	assert.Equal(t, "1RW8370RCKD123456", m.SerialNumber)
	assert.Equal(t, "Tractor 12", m.Name)
	assert.Equal(t, "8370R", m.Model)
	assert.Equal(t, "Tractor", m.Type)
	assert.JSONEq(t, "2019", string(m.Year))

	// Exactly the five projected fields
	encoded, err := json.Marshal(m)
	require.NoError(t, err)
	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(encoded, &fields))
	assert.Len(t, fields, 5)
	for _, key := range []string{"serialNumber", "name", "model", "type", "year"} {
		assert.Contains(t, fields, key)
	}
}

func TestFilterMachines_OnlyMachinesCountAsSkipped(t *testing.T) {
	raw := []json.RawMessage{
		json.RawMessage(`{"@type":"Implement","name":{"bad":1},"archived":"no"}`),
		json.RawMessage(`{"@type":"Implement","isSerialNumberCertified":"yes"}`),
		json.RawMessage(`{"@type":"Machine","isSerialNumberCertified":"yes","serialNumber":"M1"}`),
		json.RawMessage(`{"@type":["Machine"]}`),
		json.RawMessage(`42`),
		json.RawMessage(`{"@type":"Machine","isSerialNumberCertified":true,"serialNumber":"M2"}`),
	}

	listing := filterMachines(raw)
	require.Len(t, listing.Machines, 1)
	assert.Equal(t, "M2", listing.Machines[0].SerialNumber)
	assert.Equal(t, 3, listing.Skipped)
}

func TestFilterMachines_MissingNestedFields(t *testing.T) {
	raw := []json.RawMessage{json.RawMessage(`{"@type":"Machine","isSerialNumberCertified":true,"serialNumber":"S1","model":null}`)}
	listing := filterMachines(raw)
	require.Len(t, listing.Machines, 1)
	assert.Equal(t, "", listing.Machines[0].Model)
	assert.Equal(t, "", listing.Machines[0].Type)

	encoded, err := json.Marshal(listing.Machines[0])
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"year":null`)
}

func TestMachinesURL(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		org      string
		embed    bool
		expected string
	}{
		{
			name:     "plain",
			base:     "https://equipmentapi.deere.com/isg/equipment",
			org:      "4242",
			expected: "https://equipmentapi.deere.com/isg/equipment?organizationIds=4242&pageOffset=0&itemLimit=1000",
		},
		{
			name:     "with devices",
			base:     "https://equipmentapi.deere.com/isg/equipment",
			org:      "4242",
			embed:    true,
			expected: "https://equipmentapi.deere.com/isg/equipment?organizationIds=4242&embed=devices&pageOffset=0&itemLimit=1000",
		},
		{
			name:     "escapes org id",
			base:     "http://x/equipment?tenant=a",
			org:      "a b&c",
			expected: "http://x/equipment?tenant=a&organizationIds=a+b%26c&pageOffset=0&itemLimit=1000",
		},
		{
			name:     "default base",
			org:      "1",
			expected: "https://equipmentapi.deere.com/isg/equipment?organizationIds=1&pageOffset=0&itemLimit=1000",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, MachinesURL(tc.base, tc.org, tc.embed))
		})
	}
}

func TestClient_GetMachinesByOrg(t *testing.T) {
	p := newFakeProvider(t)
	p.setEquipment(http.StatusOK, mixedEquipmentPage)
	client := NewClient(p.config(), WithTokens(TokenSet{AccessToken: "live"}))

	machines, err := client.GetMachinesByOrg(context.Background(), "4242", true)
	require.NoError(t, err)
	require.Len(t, machines, 1)
	assert.Equal(t, "1RW8370RCKD123456", machines[0].SerialNumber)

	q := p.lastEquipmentRequest().URL.Query()
	assert.Equal(t, "4242", q.Get("organizationIds"))
	assert.Equal(t, "devices", q.Get("embed"))
	assert.Equal(t, "0", q.Get("pageOffset"))
	assert.Equal(t, "1000", q.Get("itemLimit"))
}

func TestClient_ListMachines_FullPageIsFlagged(t *testing.T) {
	p := newFakeProvider(t)
	items := make([]string, equipmentPageSize)
	for i := range items {
		items[i] = fmt.Sprintf(`{"@type":"Machine","isSerialNumberCertified":true,"serialNumber":"S%d"}`, i)
	}
	p.setEquipment(http.StatusOK, `{"values":[`+strings.Join(items, ",")+`]}`)
	client := NewClient(p.config(), WithTokens(TokenSet{AccessToken: "live"}))

	listing, err := client.ListMachines(context.Background(), "1", false)
	require.NoError(t, err)
	assert.True(t, listing.Truncated)
	assert.Len(t, listing.Machines, equipmentPageSize)
	assert.Equal(t, int32(1), p.equipmentHits.Load(), "only one page is fetched")
}

func TestClient_ListMachines_UndecodableBody(t *testing.T) {
	p := newFakeProvider(t)
	p.setEquipment(http.StatusOK, "<html>maintenance</html>")
	client := NewClient(p.config(), WithTokens(TokenSet{AccessToken: "live"}))

	_, err := client.ListMachines(context.Background(), "1", false)
	var apiErr *ResourceAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.Contains(t, apiErr.Body, "maintenance")
}

func TestClient_ListMachines_EmptyValues(t *testing.T) {
	p := newFakeProvider(t)
	p.setEquipment(http.StatusOK, `{}`)
	client := NewClient(p.config(), WithTokens(TokenSet{AccessToken: "live"}))

	listing, err := client.ListMachines(context.Background(), "1", false)
	require.NoError(t, err)
	assert.NotNil(t, listing.Machines)
	assert.Empty(t, listing.Machines)
	assert.False(t, listing.Truncated)
}
