package authflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/florianilch/geminine/internal/credstore"
)

func seedStore(t *testing.T, store credstore.Store) *oauth2.Token {
	t.Helper()
	tok := &oauth2.Token{
		AccessToken:  "cached-access",
		RefreshToken: "cached-refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour),
	}
	if err := store.Save(context.Background(), tok); err != nil {
		t.Fatalf("seeding store: %v", err)
	}
	return tok
}

func TestClientUsesCachedCredentials(t *testing.T) {
	var providerHits atomic.Int64
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		providerHits.Add(1)
		http.Error(w, "unexpected call", http.StatusInternalServerError)
	}))
	defer provider.Close()

	dir := t.TempDir()
	profile, err := credstore.NewProfileCache(filepath.Join(dir, "user_info.json"))
	if err != nil {
		t.Fatalf("NewProfileCache: %v", err)
	}
	if err := profile.Save(context.Background(), &credstore.Profile{Email: "dev@example.com"}); err != nil {
		t.Fatalf("seeding profile: %v", err)
	}

	store, err := credstore.NewFileStore(filepath.Join(dir, "oauth_creds.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	seedStore(t, store)

	a := New(store, profile,
		WithOutput(&strings.Builder{}),
		WithEndpoint(oauth2.Endpoint{AuthURL: provider.URL + "/auth", TokenURL: provider.URL + "/token"}),
		WithUserInfoURL(provider.URL+"/userinfo"),
		WithEnviron(func(string) string { return "" }),
		WithInput(strings.NewReader("")),
		WithBrowserOpen(func(string) error { t.Error("browser launched despite cached credentials"); return nil }),
	)

	client, err := a.Client(context.Background(), ModeOAuth)
	if err != nil {
		t.Fatalf("Client: %v", err)
	}

	tok, err := client.Source.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok.AccessToken != "cached-access" {
		t.Errorf("AccessToken = %q, want cached-access", tok.AccessToken)
	}
	if hits := providerHits.Load(); hits != 0 {
		t.Errorf("provider was contacted %d times for a fully cached login", hits)
	}
}

func TestClientCorruptCacheFallsThrough(t *testing.T) {
	dir := t.TempDir()
	credsPath := filepath.Join(dir, "oauth_creds.json")
	if err := os.WriteFile(credsPath, []byte("{corrupt"), 0600); err != nil {
		t.Fatalf("writing corrupt cache: %v", err)
	}
	store, err := credstore.NewFileStore(credsPath)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	a := New(store, nil,
		WithOutput(&strings.Builder{}),
		WithInput(strings.NewReader("\n")),
		WithNoBrowser(true),
		WithEnviron(func(string) string { return "" }),
	)

	// The corrupt cache must not raise; flow selection proceeds to the
	// manual flow, which the scripted input confirms.
	if _, err := a.Client(context.Background(), ModeOAuth); err != nil {
		t.Fatalf("Client with corrupt cache: %v", err)
	}
}

// denyingBrowser simulates a user denying consent: instead of opening a
// browser it immediately drives the loopback redirect with an error.
func denyingBrowser(t *testing.T) func(string) error {
	t.Helper()
	return func(authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			t.Fatalf("parsing auth URL: %v", err)
		}
		redirect := u.Query().Get("redirect_uri")
		if redirect == "" {
			t.Fatal("auth URL carries no redirect_uri")
		}
		resp, err := http.Get(redirect + "?error=access_denied")
		if err != nil {
			return err
		}
		_ = resp.Body.Close()
		return nil
	}
}

func TestBrowserFailureFallsBackToManual(t *testing.T) {
	a, _ := newTestAuthenticator(t, nil,
		WithInput(strings.NewReader("\n")),
		WithBrowserOpen(denyingBrowser(t)),
	)

	if _, err := a.Client(context.Background(), ModeOAuth); err != nil {
		t.Fatalf("Client after browser denial with manual confirmation: %v", err)
	}
}

func TestBrowserAndManualFailure(t *testing.T) {
	a, _ := newTestAuthenticator(t, nil,
		WithInput(&flakyReader{failures: 10, data: strings.NewReader("")}),
		WithBrowserOpen(denyingBrowser(t)),
	)

	_, err := a.Client(context.Background(), ModeOAuth)
	if err == nil {
		t.Fatal("Client succeeded although both flows failed")
	}
	if !strings.Contains(err.Error(), "access_denied") {
		t.Errorf("error %q does not carry the browser failure", err)
	}
	if !strings.Contains(err.Error(), "manual flow failed") {
		t.Errorf("error %q does not carry the manual failure", err)
	}
}

func TestEnsureProfileFetchesOnce(t *testing.T) {
	var userinfoHits atomic.Int64
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/userinfo" {
			http.NotFound(w, r)
			return
		}
		userinfoHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"email": "dev@example.com"})
	}))
	defer provider.Close()

	dir := t.TempDir()
	store, err := credstore.NewFileStore(filepath.Join(dir, "oauth_creds.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	seedStore(t, store)
	profile, err := credstore.NewProfileCache(filepath.Join(dir, "user_info.json"))
	if err != nil {
		t.Fatalf("NewProfileCache: %v", err)
	}

	a := New(store, profile,
		WithOutput(&strings.Builder{}),
		WithInput(strings.NewReader("")),
		WithUserInfoURL(provider.URL+"/userinfo"),
		WithEnviron(func(string) string { return "" }),
	)

	ctx := context.Background()
	if _, err := a.Client(ctx, ModeOAuth); err != nil {
		t.Fatalf("Client: %v", err)
	}

	got, ok := profile.Load(ctx)
	if !ok || got.Email != "dev@example.com" {
		t.Fatalf("profile cache = (%+v, %v), want cached dev@example.com", got, ok)
	}

	// A second login reuses the cached profile.
	if _, err := a.Client(ctx, ModeOAuth); err != nil {
		t.Fatalf("second Client: %v", err)
	}
	if hits := userinfoHits.Load(); hits != 1 {
		t.Errorf("userinfo endpoint hit %d times, want 1", hits)
	}
}

func TestCachedTokenSourceRequiresCache(t *testing.T) {
	a, _ := newTestAuthenticator(t, nil)

	if _, err := a.CachedTokenSource(context.Background()); err == nil {
		t.Fatal("CachedTokenSource succeeded with an empty cache")
	}
}
