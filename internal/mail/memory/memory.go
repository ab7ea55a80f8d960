// Package memory provides an in-process mailbox backed by JSON fixtures,
// used for offline scans and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"subscan/internal/core"
	"subscan/internal/mail"
)

// Ensure interface conformance
var _ mail.Mailbox = (*Store)(nil)

// Part is a fixture MIME part; Data is URL-safe base64.
type Part struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

// Message is one fixture email. Body is plain text; when Parts is set the
// body is derived from the parts the way a provider payload would be.
type Message struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	From    string `json:"from"`
	Date    string `json:"date"`
	Body    string `json:"body"`
	Parts   []Part `json:"parts,omitempty"`
}

type Store struct {
	mu    sync.Mutex
	items []Message
	byID  map[string]int
}

func New(messages []Message) *Store {
	s := &Store{byID: make(map[string]int)}
	for _, m := range messages {
		if strings.TrimSpace(m.ID) == "" {
			continue
		}
		if _, ok := s.byID[m.ID]; ok {
			continue
		}
		s.byID[m.ID] = len(s.items)
		s.items = append(s.items, m)
	}
	return s
}

// NewFromDir loads every *.json file in dir, in file name order. Each file
// holds one message object or an array of them.
func NewFromDir(dir string) (*Store, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list mailbox fixtures: %w", err)
	}
	sort.Strings(paths)

	var all []Message
	for _, p := range paths {
		msgs, err := readFixture(p)
		if err != nil {
			return nil, err
		}
		all = append(all, msgs...)
	}
	return New(all), nil
}

func readFixture(path string) ([]Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var msgs []Message
		if err := json.Unmarshal(data, &msgs); err != nil {
			return nil, fmt.Errorf("parse fixture %s: %w", path, err)
		}
		return msgs, nil
	}
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return []Message{m}, nil
}

// Len returns the number of stored messages.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Search returns, per query, every message containing any of the query's
// terms. Overlaps across queries are kept, as with a real provider.
func (s *Store) Search(_ context.Context, queries []string) ([]core.RawMessageRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var refs []core.RawMessageRef
	for _, q := range queries {
		terms := queryTerms(q)
		if len(terms) == 0 {
			continue
		}
		for _, m := range s.items {
			haystack := strings.ToLower(m.Subject + "\n" + m.From + "\n" + m.Body)
			for _, term := range terms {
				if strings.Contains(haystack, term) {
					refs = append(refs, core.RawMessageRef{ID: m.ID})
					break
				}
			}
		}
	}
	return refs, nil
}

// Fetch returns the stored message.
func (s *Store) Fetch(_ context.Context, ref core.RawMessageRef) (core.RawMessage, error) {
	s.mu.Lock()
	idx, ok := s.byID[ref.ID]
	var m Message
	if ok {
		m = s.items[idx]
	}
	s.mu.Unlock()

	if !ok {
		return core.RawMessage{}, fmt.Errorf("%w: message %s: not found", core.ErrFetch, ref.ID)
	}

	body := m.Body
	if len(m.Parts) > 0 {
		p := mail.Payload{MimeType: "multipart/mixed"}
		for _, part := range m.Parts {
			p.Parts = append(p.Parts, mail.Payload{MimeType: part.MimeType, Data: part.Data})
		}
		text, err := mail.BodyText(p)
		if err != nil {
			return core.RawMessage{}, fmt.Errorf("message %s: %w", ref.ID, err)
		}
		body = text
	}

	return core.RawMessage{
		ID:         m.ID,
		Subject:    m.Subject,
		Sender:     m.From,
		DateHeader: m.Date,
		BodyText:   body,
	}, nil
}

var termPattern = regexp.MustCompile(`"[^"]+"|[^\s()"]+`)

// queryTerms reduces Gmail query syntax to lower-case search terms:
// field prefixes, parentheses and OR are dropped.
func queryTerms(q string) []string {
	var terms []string
	for _, tok := range termPattern.FindAllString(q, -1) {
		if tok == "OR" || tok == "AND" {
			continue
		}
		if i := strings.Index(tok, ":"); i >= 0 && !strings.HasPrefix(tok, `"`) {
			tok = tok[i+1:]
		}
		tok = strings.ToLower(strings.Trim(tok, `"()`))
		if tok == "" {
			continue
		}
		terms = append(terms, tok)
	}
	return terms
}
