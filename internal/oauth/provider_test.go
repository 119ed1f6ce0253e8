package oauth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ocbridge/internal/config"
)

const (
	testClientID     = "client-id"
	testClientSecret = "client-secret"
	testRedirectURI  = "http://127.0.0.1:9090/callback"
)

// fakeProvider is an in-process Operations Center stand-in serving discovery,
// token and equipment endpoints.
type fakeProvider struct {
	server *httptest.Server

	metadataHits  atomic.Int32
	tokenHits     atomic.Int32
	equipmentHits atomic.Int32

	mu              sync.Mutex
	metadataStatus  int
	tokenStatus     int
	tokenBody       map[string]interface{}
	tokenForms      []url.Values
	tokenAuth       []string
	equipmentCode   int
	equipmentBody   string
	equipmentHeader string
	equipmentReqs   []*http.Request
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	p := &fakeProvider{
		metadataStatus: http.StatusOK,
		tokenStatus:    http.StatusOK,
		tokenBody: map[string]interface{}{
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
			"token_type":    "Bearer",
			"expires_in":    3600,
		},
		equipmentCode: http.StatusOK,
		equipmentBody: `{"values":[]}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/oauth-authorization-server", func(w http.ResponseWriter, r *http.Request) {
		p.metadataHits.Add(1)
		p.mu.Lock()
		status := p.metadataStatus
		p.mu.Unlock()
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"issuer":                 p.server.URL,
			"authorization_endpoint": p.server.URL + "/authorize",
			"token_endpoint":         p.server.URL + "/token",
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		p.tokenHits.Add(1)
		_ = r.ParseForm()

		p.mu.Lock()
		p.tokenForms = append(p.tokenForms, r.PostForm)
		p.tokenAuth = append(p.tokenAuth, r.Header.Get("Authorization"))
		status := p.tokenStatus
		body := p.tokenBody
		p.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(body)
	})
	mux.HandleFunc("/equipment", func(w http.ResponseWriter, r *http.Request) {
		p.equipmentHits.Add(1)
		p.mu.Lock()
		p.equipmentReqs = append(p.equipmentReqs, r.Clone(r.Context()))
		code := p.equipmentCode
		body := p.equipmentBody
		challenge := p.equipmentHeader
		p.mu.Unlock()
		if challenge != "" {
			w.Header().Set("WWW-Authenticate", challenge)
		}
		w.WriteHeader(code)
		_, _ = w.Write([]byte(body))
	})

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakeProvider) config() config.OperationsCenterConfig {
	return config.OperationsCenterConfig{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		WellKnownURL: p.server.URL + "/.well-known/oauth-authorization-server",
		RedirectURI:  testRedirectURI,
		Scope:        config.DefaultScope,
		State:        config.DefaultState,
		EquipmentURL: p.server.URL + "/equipment",
	}
}

func (p *fakeProvider) setToken(status int, body map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenStatus = status
	if body != nil {
		p.tokenBody = body
	}
}

func (p *fakeProvider) setEquipment(status int, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.equipmentCode = status
	p.equipmentBody = body
}

func (p *fakeProvider) lastTokenForm() url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.tokenForms) == 0 {
		return nil
	}
	return p.tokenForms[len(p.tokenForms)-1]
}

func (p *fakeProvider) lastTokenAuth() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.tokenAuth) == 0 {
		return ""
	}
	return p.tokenAuth[len(p.tokenAuth)-1]
}

func (p *fakeProvider) lastEquipmentRequest() *http.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.equipmentReqs) == 0 {
		return nil
	}
	return p.equipmentReqs[len(p.equipmentReqs)-1]
}

// fixedClock is a settable time source.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
