package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
)

// FakeVault is an in-memory stand-in for the vault HTTP API. It implements the
// sys endpoints used for the lifecycle (init, unseal, seal, seal-status, mounts)
// and KV version 1 reads, writes and deletes under every mounted kv engine.
type FakeVault struct {
	server *httptest.Server

	mu          sync.Mutex
	initialized bool
	sealed      bool
	shares      int
	threshold   int
	progress    int
	keys        []string
	rootToken   string
	initCount   int
	mounts      map[string]string
	entries     map[string]map[string]interface{}
	calls       map[string]int
	failures    map[string]int
}

// NewFakeVault starts a fake vault server that is closed when the test ends.
func NewFakeVault(t *testing.T) *FakeVault {
	t.Helper()

	f := &FakeVault{
		sealed:   true,
		mounts:   map[string]string{"sys/": "system", "cubbyhole/": "cubbyhole"},
		entries:  make(map[string]map[string]interface{}),
		calls:    make(map[string]int),
		failures: make(map[string]int),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serveHTTP))
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the base address of the fake vault.
func (f *FakeVault) URL() string {
	return f.server.URL
}

// Close stops the server so every following request fails at the transport level.
func (f *FakeVault) Close() {
	f.server.Close()
}

// Calls returns how many requests were made for method and path (e.g. "PUT", "/v1/sys/init").
func (f *FakeVault) Calls(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method+" "+path]
}

// FailWith makes every request for method and path answer with status until ClearFailures.
func (f *FakeVault) FailWith(method, path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+path] = status
}

// ClearFailures removes every injected failure.
func (f *FakeVault) ClearFailures() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = make(map[string]int)
}

// Initialized reports whether the fake vault has been initialized.
func (f *FakeVault) Initialized() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initialized
}

// Sealed reports whether the fake vault is sealed.
func (f *FakeVault) Sealed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sealed
}

// InitCount returns how many successful initializations happened.
func (f *FakeVault) InitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initCount
}

// RootToken returns the root token generated on initialization.
func (f *FakeVault) RootToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rootToken
}

// UnsealKeys returns a copy of the generated unseal keys.
func (f *FakeVault) UnsealKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

// Restart seals the vault the way a process restart would.
func (f *FakeVault) Restart() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.initialized {
		f.sealed = true
		f.progress = 0
	}
}

// Entry returns the stored data at a full KV path such as "secret/db".
func (f *FakeVault) Entry(path string) (map[string]interface{}, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.entries[path]
	return data, ok
}

// HasMount reports whether an engine is mounted at path (without trailing slash).
func (f *FakeVault) HasMount(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.mounts[strings.Trim(path, "/")+"/"]
	return ok
}

func (f *FakeVault) serveHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := r.Method + " " + r.URL.Path
	f.calls[key]++
	if status, ok := f.failures[key]; ok {
		writeVaultErrors(w, status, "injected failure")
		return
	}

	path := r.URL.Path
	switch {
	case path == "/v1/sys/init":
		f.handleInit(w, r)
	case path == "/v1/sys/seal-status":
		writeVaultJSON(w, http.StatusOK, f.sealStatus())
	case path == "/v1/sys/unseal":
		f.handleUnseal(w, r)
	case path == "/v1/sys/seal":
		f.handleSeal(w, r)
	case path == "/v1/sys/mounts":
		f.handleListMounts(w, r)
	case strings.HasPrefix(path, "/v1/sys/mounts/"):
		f.handleMount(w, r, strings.TrimPrefix(path, "/v1/sys/mounts/"))
	default:
		f.handleKV(w, r, strings.TrimPrefix(path, "/v1/"))
	}
}

func (f *FakeVault) handleInit(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		writeVaultJSON(w, http.StatusOK, map[string]interface{}{"initialized": f.initialized})
		return
	}
	if f.initialized {
		writeVaultErrors(w, http.StatusBadRequest, "Vault is already initialized")
		return
	}

	var req struct {
		SecretShares    int `json:"secret_shares"`
		SecretThreshold int `json:"secret_threshold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeVaultErrors(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.SecretShares < 1 || req.SecretThreshold < 1 || req.SecretThreshold > req.SecretShares {
		writeVaultErrors(w, http.StatusBadRequest, "invalid seal configuration")
		return
	}

	f.initCount++
	f.initialized = true
	f.sealed = true
	f.shares = req.SecretShares
	f.threshold = req.SecretThreshold
	f.progress = 0
	f.rootToken = fmt.Sprintf("hvs.fake-root-%d", f.initCount)
	f.keys = make([]string, req.SecretShares)
	for i := range f.keys {
		f.keys[i] = fmt.Sprintf("fake-unseal-key-%d-%d", f.initCount, i+1)
	}

	writeVaultJSON(w, http.StatusOK, map[string]interface{}{
		"keys":        f.keys,
		"keys_base64": f.keys,
		"root_token":  f.rootToken,
	})
}

func (f *FakeVault) handleUnseal(w http.ResponseWriter, r *http.Request) {
	if !f.initialized {
		writeVaultErrors(w, http.StatusBadRequest, "Vault is not initialized")
		return
	}

	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeVaultErrors(w, http.StatusBadRequest, err.Error())
		return
	}

	if f.sealed {
		valid := false
		for _, k := range f.keys {
			if k == req.Key {
				valid = true
				break
			}
		}
		if !valid {
			writeVaultErrors(w, http.StatusBadRequest, "invalid key")
			return
		}
		f.progress++
		if f.progress >= f.threshold {
			f.sealed = false
			f.progress = 0
		}
	}

	writeVaultJSON(w, http.StatusOK, f.sealStatus())
}

func (f *FakeVault) handleSeal(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(r) {
		writeVaultErrors(w, http.StatusForbidden, "permission denied")
		return
	}
	f.sealed = true
	f.progress = 0
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeVault) handleListMounts(w http.ResponseWriter, r *http.Request) {
	if !f.ready(w, r) {
		return
	}
	data := make(map[string]interface{}, len(f.mounts))
	for path, typ := range f.mounts {
		data[path] = map[string]interface{}{"type": typ}
	}
	writeVaultJSON(w, http.StatusOK, map[string]interface{}{"data": data})
}

func (f *FakeVault) handleMount(w http.ResponseWriter, r *http.Request, path string) {
	if !f.ready(w, r) {
		return
	}
	var req struct {
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeVaultErrors(w, http.StatusBadRequest, err.Error())
		return
	}
	mount := strings.Trim(path, "/") + "/"
	if _, ok := f.mounts[mount]; ok {
		writeVaultErrors(w, http.StatusBadRequest, "path is already in use at "+mount)
		return
	}
	f.mounts[mount] = req.Type
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeVault) handleKV(w http.ResponseWriter, r *http.Request, path string) {
	if !f.ready(w, r) {
		return
	}

	mount := f.mountFor(path)
	if mount == "" || f.mounts[mount] != "kv" {
		writeVaultErrors(w, http.StatusNotFound, "no handler for route \""+path+"\"")
		return
	}

	switch r.Method {
	case http.MethodGet:
		data, ok := f.entries[path]
		if !ok {
			writeVaultJSON(w, http.StatusNotFound, map[string]interface{}{"errors": []string{}})
			return
		}
		writeVaultJSON(w, http.StatusOK, map[string]interface{}{
			"request_id":     "fake-request",
			"lease_duration": 2764800,
			"data":           data,
		})
	case http.MethodPut, http.MethodPost:
		var data map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			writeVaultErrors(w, http.StatusBadRequest, err.Error())
			return
		}
		f.entries[path] = data
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		delete(f.entries, path)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeVaultErrors(w, http.StatusMethodNotAllowed, "unsupported operation")
	}
}

// ready writes the vault's answer for sealed or unauthenticated requests.
func (f *FakeVault) ready(w http.ResponseWriter, r *http.Request) bool {
	if !f.initialized || f.sealed {
		writeVaultErrors(w, http.StatusServiceUnavailable, "Vault is sealed")
		return false
	}
	if !f.authorized(r) {
		writeVaultErrors(w, http.StatusForbidden, "permission denied")
		return false
	}
	return true
}

func (f *FakeVault) authorized(r *http.Request) bool {
	return f.rootToken != "" && r.Header.Get("X-Vault-Token") == f.rootToken
}

func (f *FakeVault) mountFor(path string) string {
	mounts := make([]string, 0, len(f.mounts))
	for m := range f.mounts {
		mounts = append(mounts, m)
	}
	// longest prefix wins
	sort.Slice(mounts, func(i, j int) bool { return len(mounts[i]) > len(mounts[j]) })
	for _, m := range mounts {
		if strings.HasPrefix(path, m) {
			return m
		}
	}
	return ""
}

func (f *FakeVault) sealStatus() map[string]interface{} {
	return map[string]interface{}{
		"type":        "shamir",
		"initialized": f.initialized,
		"sealed":      f.sealed,
		"t":           f.threshold,
		"n":           f.shares,
		"progress":    f.progress,
		"version":     "1.15.0",
	}
}

func writeVaultJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeVaultErrors(w http.ResponseWriter, status int, messages ...string) {
	writeVaultJSON(w, status, map[string]interface{}{"errors": messages})
}
