package extract

import (
	"strings"
	"testing"
	"unicode/utf8"

	"subscan/internal/core"
)

func TestExtract_SplineReceipt(t *testing.T) {
	e := New(nil, Options{})
	fact, err := e.Extract(core.RawMessage{
		ID:         "m-1",
		Subject:    "Your monthly subscription receipt",
		Sender:     "Billing <billing@spline.design>",
		DateHeader: "Tue, 01 Oct 2024 10:00:00 +0000",
		BodyText:   "Charged $12.50 to your card",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fact.Merchant != "Spline" {
		t.Errorf("merchant = %q, want Spline", fact.Merchant)
	}
	if fact.Amount == nil || fact.Amount.Cents != 1250 {
		t.Errorf("amount = %v, want 12.50", fact.Amount)
	}
	if fact.Frequency != core.Monthly {
		t.Errorf("frequency = %q, want monthly", fact.Frequency)
	}
	if fact.MessageID != "m-1" {
		t.Errorf("message id = %q", fact.MessageID)
	}
}

func TestExtract_SkipsZeroPlaceholder(t *testing.T) {
	e := New(nil, Options{})
	fact, err := e.Extract(core.RawMessage{
		ID:       "m-2",
		Subject:  "Invoice",
		Sender:   "billing@acme.com",
		BodyText: "Balance due: $0.00. Your plan renews at $1,299.00 per year. Tax $0.00",
	})
	if err != nil {
		t.Fatal(err)
	}
	if fact.Amount == nil || fact.Amount.Cents != 129900 {
		t.Fatalf("amount = %v, want 1299.00", fact.Amount)
	}
	if fact.Frequency != core.Yearly {
		t.Fatalf("frequency = %q, want yearly", fact.Frequency)
	}
	if fact.Merchant != "acme" {
		t.Fatalf("merchant = %q, want acme", fact.Merchant)
	}
}

func TestExtract_SkipsOrderNumbers(t *testing.T) {
	fact, err := New(nil, Options{}).Extract(core.RawMessage{
		ID:       "m1",
		Subject:  "Your monthly receipt",
		Sender:   "billing@acme.com",
		BodyText: "Order 12345678901234567 charged $9.99",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !fact.HasAmount() || fact.Amount.Cents != 999 {
		t.Fatalf("Amount = %v, want $9.99", fact.Amount)
	}
}

func TestExtract_NoAmount(t *testing.T) {
	e := New(nil, Options{})
	fact, err := e.Extract(core.RawMessage{ID: "m-3", Subject: "Welcome", Sender: "hello@acme.com", BodyText: "Thanks for joining"})
	if err != nil {
		t.Fatal(err)
	}
	if fact.Amount != nil || fact.HasAmount() {
		t.Fatalf("expected no amount, got %v", fact.Amount)
	}
	if fact.Frequency != core.Unknown {
		t.Fatalf("frequency = %q, want unknown", fact.Frequency)
	}
}

func TestExtract_AmountsArePositive(t *testing.T) {
	e := New(nil, Options{})
	bodies := []string{
		"$0.00 $0 $0.01",
		"Total: 0.00",
		"no numbers at all",
		"$5 $5 $5.00 $7 $9 $11",
		"order 0 then $3.10",
	}
	for _, body := range bodies {
		fact, err := e.Extract(core.RawMessage{ID: body, Sender: "x@y.z", BodyText: body})
		if err != nil {
			t.Fatalf("%q: %v", body, err)
		}
		if fact.Amount != nil && fact.Amount.Cents <= 0 {
			t.Fatalf("%q: non-positive amount %v", body, fact.Amount)
		}
		if len(fact.Candidates) > maxCandidates {
			t.Fatalf("%q: %d candidates", body, len(fact.Candidates))
		}
		for _, c := range fact.Candidates {
			if c.Cents <= 0 {
				t.Fatalf("%q: non-positive candidate %v", body, c)
			}
		}
	}
}

func TestExtract_CandidatesDistinctAndCapped(t *testing.T) {
	e := New(nil, Options{})
	fact, err := e.Extract(core.RawMessage{ID: "m", Sender: "a@b.c", BodyText: "$5 $5.00 $7 $9 $11"})
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{500, 700, 900}
	if len(fact.Candidates) != len(want) {
		t.Fatalf("candidates = %v", fact.Candidates)
	}
	for i, c := range fact.Candidates {
		if c.Cents != want[i] {
			t.Fatalf("candidate %d = %d, want %d", i, c.Cents, want[i])
		}
	}
}

func TestExtract_TruncationAfterMatching(t *testing.T) {
	limits := DefaultLimits()
	prefix := strings.Repeat("x", 150)
	subject := prefix + " monthly plan $19.99 " + strings.Repeat("y", 200-len(prefix)-len(" monthly plan $19.99 "))
	if len(subject) != 200 {
		t.Fatalf("test setup: subject length %d", len(subject))
	}

	e := New(nil, Options{})
	fact, err := e.Extract(core.RawMessage{ID: "long", Subject: subject, Sender: "billing@acme.com"})
	if err != nil {
		t.Fatal(err)
	}
	if got := utf8.RuneCountInString(fact.Subject); got != limits.Subject {
		t.Fatalf("subject length = %d, want %d", got, limits.Subject)
	}
	if strings.Contains(fact.Subject, "monthly") {
		t.Fatal("keyword should lie beyond the truncation point")
	}
	if fact.Frequency != core.Monthly {
		t.Fatalf("frequency = %q, want monthly from untruncated subject", fact.Frequency)
	}
	if fact.Amount == nil || fact.Amount.Cents != 1999 {
		t.Fatalf("amount = %v, want 19.99 from untruncated subject", fact.Amount)
	}
}

func TestExtract_TruncatesMetadata(t *testing.T) {
	e := New(nil, Options{Limits: Limits{Merchant: 5, Subject: 10, Sender: 8, Date: 4}})
	fact, err := e.Extract(core.RawMessage{
		ID:         "t",
		Subject:    "Ünïcödé subject line",
		Sender:     "\"Very Long Merchant\" <a@b.c>",
		DateHeader: "Mon, 07 Oct 2024",
	})
	if err != nil {
		t.Fatal(err)
	}
	if fact.Merchant != "Very " {
		t.Errorf("merchant = %q", fact.Merchant)
	}
	if fact.Subject != "Ünïcödé su" {
		t.Errorf("subject = %q", fact.Subject)
	}
	if fact.Sender != "\"Very Lo" {
		t.Errorf("sender = %q", fact.Sender)
	}
	if fact.Date != "Mon," {
		t.Errorf("date = %q", fact.Date)
	}
}

func TestExtract_RequireDollarSign(t *testing.T) {
	msg := core.RawMessage{ID: "d", Sender: "a@b.c", Subject: "Invoice 1042", BodyText: "Amount $12.50"}

	loose, err := New(nil, Options{}).Extract(msg)
	if err != nil {
		t.Fatal(err)
	}
	if loose.Amount == nil || loose.Amount.Cents != 104200 {
		t.Fatalf("loose amount = %v, want 1042.00", loose.Amount)
	}

	strict, err := New(nil, Options{RequireDollarSign: true}).Extract(msg)
	if err != nil {
		t.Fatal(err)
	}
	if strict.Amount == nil || strict.Amount.Cents != 1250 {
		t.Fatalf("strict amount = %v, want 12.50", strict.Amount)
	}
}

func TestExtract_InvalidUTF8IsReplaced(t *testing.T) {
	e := New(nil, Options{})
	fact, err := e.Extract(core.RawMessage{ID: "u", Sender: "a@b.c", Subject: "bad \xff byte", BodyText: "$4.00 monthly"})
	if err != nil {
		t.Fatal(err)
	}
	if !utf8.ValidString(fact.Subject) || !strings.Contains(fact.Subject, "�") {
		t.Fatalf("subject = %q", fact.Subject)
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "hé"},
		{"hello", 0, "hello"},
	}
	for _, tc := range cases {
		if got := Truncate(tc.in, tc.n); got != tc.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
	}
}
