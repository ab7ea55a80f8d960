package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

const testClientJSON = `{"installed":{"client_id":"id","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`

func TestReadClientCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.json")
	if err := os.WriteFile(path, []byte("from-file"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		inline  string
		path    string
		want    string
		wantErr bool
	}{
		{name: "inline wins", inline: "inline", path: path, want: "inline"},
		{name: "file", path: path, want: "from-file"},
		{name: "missing file", path: filepath.Join(t.TempDir(), "absent.json"), wantErr: true},
		{name: "nothing configured", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readClientCredentials(tt.inline, tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("readClientCredentials() error = %v, wantErr %v", err, tt.wantErr)
			}
			if string(got) != tt.want {
				t.Errorf("readClientCredentials() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOAuthConfig_RequestsGmailReadonly(t *testing.T) {
	cfg, err := oauthConfig([]byte(testClientJSON), "http://localhost:9999/callback")
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Scopes) != 1 || !strings.HasSuffix(cfg.Scopes[0], "/auth/gmail.readonly") {
		t.Errorf("unexpected scopes %v", cfg.Scopes)
	}
	if cfg.RedirectURL != "http://localhost:9999/callback" {
		t.Errorf("RedirectURL = %q", cfg.RedirectURL)
	}

	if _, err := oauthConfig([]byte("not json"), ""); err == nil {
		t.Error("expected error for invalid client json")
	}
}

func TestCallbackHandler(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantCode int
		wantSent string
	}{
		{name: "valid code", query: "?state=s1&code=abc", wantCode: http.StatusOK, wantSent: "abc"},
		{name: "state mismatch", query: "?state=other&code=abc", wantCode: http.StatusBadRequest},
		{name: "provider error", query: "?error=access_denied", wantCode: http.StatusBadRequest},
		{name: "missing code", query: "?state=s1", wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codeCh := make(chan string, 1)
			rec := httptest.NewRecorder()
			callbackHandler("s1", codeCh).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback"+tt.query, nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			select {
			case got := <-codeCh:
				if got != tt.wantSent {
					t.Errorf("code = %q, want %q", got, tt.wantSent)
				}
			default:
				if tt.wantSent != "" {
					t.Error("expected a code to be delivered")
				}
			}
		})
	}
}

func TestCallbackHandler_SecondCodeRejected(t *testing.T) {
	codeCh := make(chan string, 1)
	h := callbackHandler("s1", codeCh)

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/callback?state=s1&code=one", nil))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/callback?state=s1&code=two", nil))

	if second.Code != http.StatusConflict {
		t.Errorf("second callback status = %d, want %d", second.Code, http.StatusConflict)
	}
	if got := <-codeCh; got != "one" {
		t.Errorf("code = %q, want one", got)
	}
}

func TestWriteToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := writeToken(path, &oauth2.Token{AccessToken: "at", RefreshToken: "rt"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("token file mode = %v, want 0600", perm)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		t.Fatal(err)
	}
	if tok.RefreshToken != "rt" {
		t.Errorf("refresh token = %q", tok.RefreshToken)
	}
}
