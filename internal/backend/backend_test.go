package backend

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"subscan/internal/config"
	"subscan/internal/core"
	"subscan/internal/mail/gmail"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{MailBackend: "imap"}); err == nil {
		t.Error("expected error for unknown kind")
	}

	cfg, err := FromAppConfig(&config.Config{
		MailBackend:          "gmail",
		GoogleOAuthTokenJSON: "{}",
		MaxResultsPerQuery:   50,
		MemoryMailboxDir:     "fixtures",
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Kind != KindGmail || cfg.MaxResultsPerQuery != 50 || cfg.Credentials.TokenJSON != "{}" || cfg.MailboxDir != "fixtures" {
		t.Errorf("unexpected mailbox config %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{"unknown kind", Config{Kind: "pop3"}, "unknown mailbox kind"},
		{"gmail without client", Config{Kind: KindGmail, Credentials: gmailCreds("", "{}")}, "OAuth client"},
		{"gmail without token", Config{Kind: KindGmail, Credentials: gmailCreds("{}", "")}, "OAuth token"},
		{"gmail ok", Config{Kind: KindGmail, Credentials: gmailCreds("{}", "{}")}, ""},
		{"memory without dir", Config{Kind: KindMemory}, "fixture directory"},
		{"memory ok", Config{Kind: KindMemory, MailboxDir: "x"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestOpen_Memory(t *testing.T) {
	dir := t.TempDir()
	fixture := `[{"id":"m1","subject":"Your subscription renewal","from":"billing@acme.com","body":"$9.99 monthly"}]`
	if err := os.WriteFile(filepath.Join(dir, "inbox.json"), []byte(fixture), 0o600); err != nil {
		t.Fatal(err)
	}

	opened, err := NewOpener(nil).Open(context.Background(), Config{Kind: KindMemory, MailboxDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	refs, err := opened.Mailbox.Search(context.Background(), []string{`subject:"your subscription"`})
	if err != nil {
		t.Fatal(err)
	}
	if want := []core.RawMessageRef{{ID: "m1"}}; !reflect.DeepEqual(refs, want) {
		t.Fatalf("refs = %v, want %v", refs, want)
	}
}

func TestOpen_GmailNeedsValidCredentials(t *testing.T) {
	_, err := NewOpener(nil).Open(context.Background(), Config{
		Kind:        KindGmail,
		Credentials: gmailCreds("not json", "{}"),
	})
	if err == nil || !strings.Contains(err.Error(), "open gmail mailbox") {
		t.Fatalf("expected gmail open error, got %v", err)
	}
}

func TestOpen_InvalidConfig(t *testing.T) {
	if _, err := NewOpener(nil).Open(context.Background(), Config{Kind: KindMemory}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestKinds(t *testing.T) {
	for _, k := range Kinds() {
		if !k.Valid() {
			t.Errorf("%s should be valid", k)
		}
	}
	if Kind("imap").Valid() {
		t.Error("imap should not be valid")
	}
}

func gmailCreds(client, token string) gmail.Credentials {
	return gmail.Credentials{ClientJSON: client, TokenJSON: token}
}
