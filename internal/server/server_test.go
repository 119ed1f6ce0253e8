package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ocbridge/internal/config"
	"ocbridge/internal/oauth"
	"ocbridge/internal/session"
)

const equipmentPage = `{"values":[
	{"@type":"Machine","isSerialNumberCertified":true,"serialNumber":"1RW8370RCHD123456","name":"Tractor 1","model":{"name":"8370R"},"type":{"name":"Tractor"},"modelYear":2021},
	{"@type":"Machine","isSerialNumberCertified":true,"archived":true,"serialNumber":"OLD","name":"Archived"},
	{"@type":"Implement","isSerialNumberCertified":true,"serialNumber":"IMP","name":"Planter"},
	"not-an-object"
]}`

// provider is a minimal Operations Center stand-in.
type provider struct {
	server *httptest.Server

	tokenHits     atomic.Int32
	equipmentHits atomic.Int32

	mu            sync.Mutex
	tokenStatus   int
	equipmentCode int
	equipmentBody string
	lastBearer    string

	// rotating makes /token accept only currentRefresh and issue a new pair
	// on every grant.
	rotating       bool
	currentRefresh string
	generation     int
	tokenDelay     time.Duration
}

func newProvider(t *testing.T) *provider {
	t.Helper()
	p := &provider{
		tokenStatus:   http.StatusOK,
		equipmentCode: http.StatusOK,
		equipmentBody: equipmentPage,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/oauth-authorization-server", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"authorization_endpoint": p.server.URL + "/authorize",
			"token_endpoint":         p.server.URL + "/token",
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		p.tokenHits.Add(1)
		_ = r.ParseForm()
		p.mu.Lock()
		status := p.tokenStatus
		rotating, delay := p.rotating, p.tokenDelay
		p.mu.Unlock()
		time.Sleep(delay)
		w.Header().Set("Content-Type", "application/json")
		if rotating {
			p.mu.Lock()
			defer p.mu.Unlock()
			if r.PostForm.Get("refresh_token") != p.currentRefresh {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
			p.generation++
			p.currentRefresh = fmt.Sprintf("refresh-gen-%d", p.generation)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token":  fmt.Sprintf("access-gen-%d", p.generation),
				"refresh_token": p.currentRefresh,
				"token_type":    "Bearer",
				"expires_in":    3600,
			})
			return
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"access-2","refresh_token":"refresh-2","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/equipment", func(w http.ResponseWriter, r *http.Request) {
		p.equipmentHits.Add(1)
		p.mu.Lock()
		p.lastBearer = r.Header.Get("Authorization")
		code, body := p.equipmentCode, p.equipmentBody
		p.mu.Unlock()
		w.WriteHeader(code)
		_, _ = w.Write([]byte(body))
	})

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *provider) config() config.OperationsCenterConfig {
	return config.OperationsCenterConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		WellKnownURL: p.server.URL + "/.well-known/oauth-authorization-server",
		RedirectURI:  "http://127.0.0.1:9090/callback",
		Scope:        config.DefaultScope,
		State:        config.DefaultState,
		EquipmentURL: p.server.URL + "/equipment",
	}
}

func (p *provider) bearer() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastBearer
}

type fixture struct {
	provider *provider
	store    *session.MemoryStore
	manager  *session.Manager
	handler  http.Handler
}

func newFixture(t *testing.T, ocCfg func(*provider) config.OperationsCenterConfig, opts ...Option) *fixture {
	t.Helper()
	p := newProvider(t)
	store := session.NewMemoryStore(time.Hour)
	t.Cleanup(store.Stop)
	manager := session.NewManager(store, []byte("secret"), session.Options{CookieName: "sid"})
	states := oauth.NewStateStore()
	t.Cleanup(states.Stop)

	cfg := p.config()
	if ocCfg != nil {
		cfg = ocCfg(p)
	}
	factory := oauth.NewFactory(cfg, config.GetDefaultConfig().Timeouts, nil)
	srv := New("127.0.0.1:0", factory, manager, states, opts...)

	return &fixture{provider: p, store: store, manager: manager, handler: srv.CreateMux()}
}

func (f *fixture) seed(t *testing.T, id string, tokens oauth.TokenSet) *http.Cookie {
	t.Helper()
	s := session.New(id)
	s.Set(session.UserIDKey, "user-1")
	oauth.PersistTokens(s, tokens)
	require.NoError(t, f.store.Save(context.Background(), s))
	return f.manager.Cookie(id)
}

func (f *fixture) get(t *testing.T, target string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.get(t, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMachines_Success(t *testing.T) {
	f := newFixture(t, nil)
	cookie := f.seed(t, "s-ok", oauth.TokenSet{AccessToken: "access-1", RefreshToken: "refresh-1", ExpiresAt: time.Now().Add(time.Hour)})

	rec := f.get(t, "/api/oc/machines?org_id=123", cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Values []oauth.MachineSummary `json:"values"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Values, 1)
	assert.Equal(t, "1RW8370RCHD123456", body.Values[0].SerialNumber)
	assert.Equal(t, "1", rec.Header().Get(HeaderSkippedRecords))
	assert.Equal(t, "Bearer access-1", f.provider.bearer())
	assert.Equal(t, int32(0), f.provider.tokenHits.Load())
}

func TestMachines_RefreshesExpiredTokenAndPersists(t *testing.T) {
	f := newFixture(t, nil)
	cookie := f.seed(t, "s-exp", oauth.TokenSet{AccessToken: "access-1", RefreshToken: "refresh-1", ExpiresAt: time.Now().Add(-time.Minute)})

	rec := f.get(t, "/api/oc/machines?org_id=123", cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int32(1), f.provider.tokenHits.Load())
	assert.Equal(t, "Bearer access-2", f.provider.bearer())

	stored, err := f.store.Get(context.Background(), "s-exp")
	require.NoError(t, err)
	assert.Equal(t, "access-2", stored.Get(oauth.SessionAccessTokenKey))
	assert.Equal(t, "refresh-2", stored.Get(oauth.SessionRefreshTokenKey))
	exp, err := strconv.ParseInt(stored.Get(oauth.SessionExpiresAtKey), 10, 64)
	require.NoError(t, err)
	assert.Greater(t, exp, time.Now().Unix())
}

func TestMachines_PersistsRefreshEvenWhenResourceFails(t *testing.T) {
	f := newFixture(t, nil)
	f.provider.mu.Lock()
	f.provider.equipmentCode = http.StatusInternalServerError
	f.provider.equipmentBody = "boom"
	f.provider.mu.Unlock()
	cookie := f.seed(t, "s-fail", oauth.TokenSet{AccessToken: "access-1", RefreshToken: "refresh-1", ExpiresAt: time.Now().Add(-time.Minute)})

	rec := f.get(t, "/api/oc/machines?org_id=123", cookie)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "oc_api_error", decodeError(t, rec).Error)

	stored, err := f.store.Get(context.Background(), "s-fail")
	require.NoError(t, err)
	assert.Equal(t, "access-2", stored.Get(oauth.SessionAccessTokenKey))
}

func TestMachines_ErrorMapping(t *testing.T) {
	t.Run("missing org_id", func(t *testing.T) {
		f := newFixture(t, nil)
		cookie := f.seed(t, "s1", oauth.TokenSet{AccessToken: "a"})
		rec := f.get(t, "/api/oc/machines", cookie)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "org_id is required", decodeError(t, rec).Error)
	})

	t.Run("no tokens in session", func(t *testing.T) {
		f := newFixture(t, nil)
		cookie := f.seed(t, "s2", oauth.TokenSet{})
		rec := f.get(t, "/api/oc/machines?org_id=1", cookie)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "not_authorized", decodeError(t, rec).Error)
		assert.Equal(t, int32(0), f.provider.equipmentHits.Load())
	})

	t.Run("expired without refresh token", func(t *testing.T) {
		f := newFixture(t, nil)
		cookie := f.seed(t, "s3", oauth.TokenSet{AccessToken: "a", ExpiresAt: time.Now().Add(-time.Minute)})
		rec := f.get(t, "/api/oc/machines?org_id=1", cookie)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, "not_authorized", body.Error)
		assert.NotEmpty(t, body.Detail)
	})

	t.Run("refresh rejected", func(t *testing.T) {
		f := newFixture(t, nil)
		f.provider.mu.Lock()
		f.provider.tokenStatus = http.StatusBadRequest
		f.provider.mu.Unlock()
		cookie := f.seed(t, "s4", oauth.TokenSet{AccessToken: "a", RefreshToken: "r", ExpiresAt: time.Now().Add(-time.Minute)})
		rec := f.get(t, "/api/oc/machines?org_id=1", cookie)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "not_authorized", decodeError(t, rec).Error)
	})

	t.Run("missing configuration", func(t *testing.T) {
		f := newFixture(t, func(p *provider) config.OperationsCenterConfig {
			cfg := p.config()
			cfg.ClientSecret = ""
			return cfg
		})
		cookie := f.seed(t, "s5", oauth.TokenSet{AccessToken: "a", RefreshToken: "r", ExpiresAt: time.Now().Add(-time.Minute)})
		rec := f.get(t, "/api/oc/machines?org_id=1", cookie)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "configuration_error", decodeError(t, rec).Error)
	})

	t.Run("resource unauthorized", func(t *testing.T) {
		f := newFixture(t, nil)
		f.provider.mu.Lock()
		f.provider.equipmentCode = http.StatusUnauthorized
		f.provider.mu.Unlock()
		cookie := f.seed(t, "s6", oauth.TokenSet{AccessToken: "a"})
		rec := f.get(t, "/api/oc/machines?org_id=1", cookie)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, decodeError(t, rec).Detail, "401")
	})
}

func TestMachines_ConcurrentRequestsShareRotatedRefreshToken(t *testing.T) {
	f := newFixture(t, nil)
	f.provider.mu.Lock()
	f.provider.rotating = true
	f.provider.currentRefresh = "refresh-gen-0"
	// Keeps the first refresh in flight until the second request has loaded its session
	f.provider.tokenDelay = 100 * time.Millisecond
	f.provider.mu.Unlock()

	cookie := f.seed(t, "s-race", oauth.TokenSet{
		AccessToken:  "access-gen-0",
		RefreshToken: "refresh-gen-0",
		ExpiresAt:    time.Now().Add(-time.Minute),
	})

	const requests = 2
	codes := make([]int, requests)
	bodies := make([]string, requests)
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := f.get(t, "/api/oc/machines?org_id=123", cookie)
			codes[i], bodies[i] = rec.Code, rec.Body.String()
		}(i)
	}
	wg.Wait()

	for i := range codes {
		assert.Equal(t, http.StatusOK, codes[i], bodies[i])
	}
	assert.Equal(t, int32(1), f.provider.tokenHits.Load(), "the second request uses the rotated tokens")

	stored, err := f.store.Get(context.Background(), "s-race")
	require.NoError(t, err)
	assert.Equal(t, "access-gen-1", stored.Get(oauth.SessionAccessTokenKey))
	assert.Equal(t, "refresh-gen-1", stored.Get(oauth.SessionRefreshTokenKey))
}

func TestMachines_SessionsDoNotShareTokens(t *testing.T) {
	f := newFixture(t, nil)
	cookieA := f.seed(t, "s-a", oauth.TokenSet{AccessToken: "access-a", RefreshToken: "refresh-a", ExpiresAt: time.Now().Add(-time.Minute)})
	bExpiry := time.Now().Add(time.Hour)
	cookieB := f.seed(t, "s-b", oauth.TokenSet{AccessToken: "access-b", RefreshToken: "refresh-b", ExpiresAt: bExpiry})

	rec := f.get(t, "/api/oc/machines?org_id=1", cookieA)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Bearer access-2", f.provider.bearer(), "A refreshed its expired token")

	storedB, err := f.store.Get(context.Background(), "s-b")
	require.NoError(t, err)
	assert.Equal(t, "access-b", storedB.Get(oauth.SessionAccessTokenKey))
	assert.Equal(t, "refresh-b", storedB.Get(oauth.SessionRefreshTokenKey))
	assert.Equal(t, strconv.FormatInt(bExpiry.Unix(), 10), storedB.Get(oauth.SessionExpiresAtKey))

	rec = f.get(t, "/api/oc/machines?org_id=1", cookieB)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Bearer access-b", f.provider.bearer())
	assert.Equal(t, int32(1), f.provider.tokenHits.Load())

	rec = f.get(t, "/api/oc/machines?org_id=1", cookieA)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Bearer access-2", f.provider.bearer())
}

func TestMachines_RequiresLocalLogin(t *testing.T) {
	f := newFixture(t, nil, WithAuthenticator(session.RequireUserID))
	rec := f.get(t, "/api/oc/machines?org_id=1", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "login_required", decodeError(t, rec).Error)
}

func TestServer_StartAndShutdown(t *testing.T) {
	p := newProvider(t)
	store := session.NewMemoryStore(time.Hour)
	defer store.Stop()
	states := oauth.NewStateStore()
	defer states.Stop()

	srv := New("127.0.0.1:0",
		oauth.NewFactory(p.config(), config.GetDefaultConfig().Timeouts, nil),
		session.NewManager(store, []byte("secret"), session.Options{}),
		states)
	require.NoError(t, srv.Start())

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
}
