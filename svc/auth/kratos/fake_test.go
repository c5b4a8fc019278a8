package kratos_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

const invalidCredentials = "The provided credentials are invalid, check for spelling mistakes in your password or username, email address, or phone number."

type fakeUser struct {
	id       string
	email    string
	password string
	name     string
}

// fakeKratos emulates the native self-service endpoints of the Kratos
// public API closely enough for the adapter.
type fakeKratos struct {
	mu         sync.Mutex
	users      map[string]*fakeUser
	sessions   map[string]string
	expiresAt  time.Time
	recoveries []string
	logouts    int
	verify     bool

	srv *httptest.Server
}

func newFakeKratos(t *testing.T) *fakeKratos {
	t.Helper()

	f := &fakeKratos{
		users:     make(map[string]*fakeUser),
		sessions:  make(map[string]string),
		expiresAt: time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /self-service/login/api", f.createFlow("login"))
	mux.HandleFunc("POST /self-service/login", f.login)
	mux.HandleFunc("GET /self-service/registration/api", f.createFlow("registration"))
	mux.HandleFunc("POST /self-service/registration", f.register)
	mux.HandleFunc("DELETE /self-service/logout/api", f.logout)
	mux.HandleFunc("GET /self-service/recovery/api", f.createFlow("recovery"))
	mux.HandleFunc("POST /self-service/recovery", f.recover)
	mux.HandleFunc("GET /self-service/settings/api", f.createSettingsFlow)
	mux.HandleFunc("POST /self-service/settings", f.settings)
	mux.HandleFunc("GET /sessions/whoami", f.whoami)

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeKratos) URL() string { return f.srv.URL }

func (f *fakeKratos) addUser(email, password, name string) *fakeUser {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &fakeUser{id: uuid.NewString(), email: email, password: password, name: name}
	f.users[email] = u
	return u
}

func (f *fakeKratos) revokeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.sessions)
}

func (f *fakeKratos) extend(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expiresAt = f.expiresAt.Add(d)
}

func (f *fakeKratos) activeSessions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeKratos) flow(kind, id string, messages ...map[string]any) map[string]any {
	now := time.Now().UTC().Truncate(time.Second)
	if messages == nil {
		messages = []map[string]any{}
	}
	return map[string]any{
		"id":          id,
		"type":        "api",
		"state":       "choose_method",
		"expires_at":  now.Add(time.Hour),
		"issued_at":   now,
		"request_url": f.srv.URL + "/self-service/" + kind + "/api",
		"ui": map[string]any{
			"action":   f.srv.URL + "/self-service/" + kind + "?flow=" + id,
			"method":   "POST",
			"nodes":    []any{},
			"messages": messages,
		},
	}
}

func errorMessage(id int, text string) map[string]any {
	return map[string]any{"id": id, "text": text, "type": "error"}
}

func (f *fakeKratos) identity(u *fakeUser) map[string]any {
	traits := map[string]any{"email": u.email}
	if u.name != "" {
		traits["name"] = u.name
	}
	return map[string]any{
		"id":         u.id,
		"schema_id":  "default",
		"schema_url": f.srv.URL + "/schemas/default",
		"traits":     traits,
	}
}

// sessionLocked must be called with f.mu held.
func (f *fakeKratos) sessionLocked(u *fakeUser) map[string]any {
	return map[string]any{
		"id":         "sess-" + u.id,
		"active":     true,
		"expires_at": f.expiresAt,
		"identity":   f.identity(u),
	}
}

func (f *fakeKratos) createFlow(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, f.flow(kind, uuid.NewString()))
	}
}

func (f *fakeKratos) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Method     string `json:"method"`
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
		Provider   string `json:"provider"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	flowID := r.URL.Query().Get("flow")

	if body.Method == "oidc" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": map[string]any{
				"id":     "browser_location_change_required",
				"code":   422,
				"reason": "In order to complete this flow please redirect the browser to: https://accounts.google.com",
			},
			"redirect_browser_to": "https://accounts.google.com/o/oauth2/v2/auth?client_id=kratos&state=" + flowID,
		})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[body.Identifier]
	if !ok || u.password != body.Password {
		writeJSON(w, http.StatusBadRequest, f.flow("login", flowID, errorMessage(4000006, invalidCredentials)))
		return
	}

	token := "ory_st_" + uuid.NewString()
	f.sessions[token] = u.email
	writeJSON(w, http.StatusOK, map[string]any{
		"session":       f.sessionLocked(u),
		"session_token": token,
	})
}

func (f *fakeKratos) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string         `json:"password"`
		Traits   map[string]any `json:"traits"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	flowID := r.URL.Query().Get("flow")
	email, _ := body.Traits["email"].(string)
	name, _ := body.Traits["name"].(string)

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.users[email]; exists {
		writeJSON(w, http.StatusBadRequest, f.flow("registration", flowID,
			errorMessage(4000007, "An account with the same identifier (email, phone, username, ...) exists already.")))
		return
	}

	u := &fakeUser{id: uuid.NewString(), email: email, password: body.Password, name: name}
	f.users[email] = u

	res := map[string]any{"identity": f.identity(u)}
	if !f.verify {
		token := "ory_st_" + uuid.NewString()
		f.sessions[token] = email
		res["session"] = f.sessionLocked(u)
		res["session_token"] = token
	}
	writeJSON(w, http.StatusOK, res)
}

func (f *fakeKratos) logout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SessionToken string `json:"session_token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	delete(f.sessions, body.SessionToken)
	f.logouts++
	f.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeKratos) recover(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.recoveries = append(f.recoveries, body.Email)
	f.mu.Unlock()

	fl := f.flow("recovery", r.URL.Query().Get("flow"))
	fl["state"] = "sent_email"
	writeJSON(w, http.StatusOK, fl)
}

func (f *fakeKratos) authorized(w http.ResponseWriter, r *http.Request) (*fakeUser, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	email, ok := f.sessions[r.Header.Get("X-Session-Token")]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"error": map[string]any{
				"code":    401,
				"status":  "Unauthorized",
				"reason":  "No valid session credentials found in the request.",
				"message": "The request could not be authorized",
			},
		})
		return nil, false
	}
	return f.users[email], true
}

func (f *fakeKratos) createSettingsFlow(w http.ResponseWriter, r *http.Request) {
	u, ok := f.authorized(w, r)
	if !ok {
		return
	}
	fl := f.flow("settings", uuid.NewString())
	fl["identity"] = f.identity(u)
	writeJSON(w, http.StatusOK, fl)
}

func (f *fakeKratos) settings(w http.ResponseWriter, r *http.Request) {
	u, ok := f.authorized(w, r)
	if !ok {
		return
	}
	var body struct {
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	fl := f.flow("settings", r.URL.Query().Get("flow"))
	fl["identity"] = f.identity(u)
	if len(body.Password) < 8 {
		fl["ui"].(map[string]any)["messages"] = []map[string]any{
			errorMessage(4000005, "The password must be at least 8 characters long."),
		}
		writeJSON(w, http.StatusBadRequest, fl)
		return
	}

	f.mu.Lock()
	u.password = body.Password
	f.mu.Unlock()

	fl["state"] = "success"
	writeJSON(w, http.StatusOK, fl)
}

func (f *fakeKratos) whoami(w http.ResponseWriter, r *http.Request) {
	u, ok := f.authorized(w, r)
	if !ok {
		return
	}
	f.mu.Lock()
	sess := f.sessionLocked(u)
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, sess)
}
