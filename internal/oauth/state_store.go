package oauth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"sync"
	"time"

	"ocbridge/pkg/logging"
)

// defaultStateExpiry bounds how long a login attempt may take.
const defaultStateExpiry = 10 * time.Minute

// LoginState is the server-side record of one login attempt.
type LoginState struct {
	// SessionID links the attempt to the browser session that started it.
	SessionID string `json:"session_id"`

	// Nonce is a random value for CSRF protection.
	Nonce string `json:"nonce"`

	// CreatedAt is when the state was created (for expiration).
	CreatedAt time.Time `json:"created_at"`
}

// StateStore provides thread-safe storage for per-login OAuth state
// parameters. Each state is single-use and expires after ten minutes.
type StateStore struct {
	mu     sync.RWMutex
	states map[string]*LoginState
	now    func() time.Time

	// Expiration configuration
	stateExpiry time.Duration
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewStateStore creates a new state store with default expiration.
func NewStateStore() *StateStore {
	ss := &StateStore{
		states:      make(map[string]*LoginState),
		now:         time.Now,
		stateExpiry: defaultStateExpiry,
		stopCleanup: make(chan struct{}),
	}

	// Start background cleanup
	go ss.cleanupLoop()

	return ss
}

// GenerateState creates a new state parameter bound to sessionID.
// Returns the encoded state string to include in the authorization URL.
func (ss *StateStore) GenerateState(sessionID string) (string, error) {
	// Generate a cryptographically random nonce
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	state := &LoginState{
		SessionID: sessionID,
		Nonce:     base64.RawURLEncoding.EncodeToString(nonce),
		CreatedAt: ss.now(),
	}

	// Encode the state as JSON then base64
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return "", err
	}

	encodedState := base64.RawURLEncoding.EncodeToString(stateJSON)

	// Store the state indexed by the nonce
	ss.mu.Lock()
	ss.states[state.Nonce] = state
	ss.mu.Unlock()

	logging.Debug("OAuth", "Generated login state for session=%s", logging.TruncateSessionID(sessionID))
	return encodedState, nil
}

// ValidateState checks a state parameter returned by the provider.
// Returns the stored state if it is known, unexpired and belongs to
// sessionID; nil otherwise. A known state is consumed either way.
func (ss *StateStore) ValidateState(encodedState, sessionID string) *LoginState {
	stateJSON, err := base64.RawURLEncoding.DecodeString(encodedState)
	if err != nil {
		logging.Warn("OAuth", "Failed to decode state: %v", err)
		return nil
	}

	var state LoginState
	if err := json.Unmarshal(stateJSON, &state); err != nil {
		logging.Warn("OAuth", "Failed to unmarshal state: %v", err)
		return nil
	}

	// Look up and consume the stored state in one step to prevent replay
	ss.mu.Lock()
	storedState, exists := ss.states[state.Nonce]
	delete(ss.states, state.Nonce)
	ss.mu.Unlock()

	if !exists {
		logging.Warn("OAuth", "State not found in store")
		return nil
	}

	if age := ss.now().Sub(storedState.CreatedAt); age > ss.stateExpiry {
		logging.Warn("OAuth", "State expired: age=%v", age)
		return nil
	}

	if storedState.SessionID != sessionID {
		logging.Warn("OAuth", "State belongs to another session")
		return nil
	}

	return storedState
}

// Count returns the number of pending states.
func (ss *StateStore) Count() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.states)
}

// Stop stops the background cleanup goroutine.
func (ss *StateStore) Stop() {
	ss.stopOnce.Do(func() { close(ss.stopCleanup) })
}

// cleanupLoop periodically removes expired states from the store.
func (ss *StateStore) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ss.cleanup()
		case <-ss.stopCleanup:
			return
		}
	}
}

// cleanup removes all expired states from the store.
func (ss *StateStore) cleanup() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	count := 0
	for nonce, state := range ss.states {
		if ss.now().Sub(state.CreatedAt) > ss.stateExpiry {
			delete(ss.states, nonce)
			count++
		}
	}

	if count > 0 {
		logging.Debug("OAuth", "Cleaned up %d expired states", count)
	}
}
