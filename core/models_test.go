package core

import (
	"testing"
	"time"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantSame bool
	}{
		{
			name:     "same content produces same ID",
			content:  "test content",
			wantSame: true,
		},
		{
			name:     "empty string",
			content:  "",
			wantSame: true,
		},
		{
			name:     "long content",
			content:  "This is a much longer piece of content that should still hash consistently",
			wantSame: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if tt.wantSame && id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestFingerprint(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	a := Fingerprint("catalog", ts)
	if a != Fingerprint("catalog", ts) {
		t.Errorf("Fingerprint() not deterministic")
	}
	if len(a) != 16 {
		t.Errorf("Fingerprint() length = %d, want 16", len(a))
	}
	if a == Fingerprint("catalog", ts.Add(time.Microsecond)) {
		t.Errorf("Fingerprint() ignored a newer timestamp")
	}
	if a == Fingerprint("memos", ts) {
		t.Errorf("Fingerprint() ignored the corpus name")
	}
	if a != Fingerprint("catalog", ts.In(time.FixedZone("x", 3600))) {
		t.Errorf("Fingerprint() depends on the time zone")
	}
}

func TestParseMessageType(t *testing.T) {
	tests := []struct {
		in      string
		want    MessageType
		wantErr bool
	}{
		{"user", MessageTypeUser, false},
		{" Bot ", MessageTypeBot, false},
		{"TOOL", MessageTypeTool, false},
		{"system", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMessageType(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMessageType(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseMessageType(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if !tt.wantErr && got.String() != "user" && got.String() != "bot" && got.String() != "tool" {
				t.Errorf("String() = %q", got.String())
			}
		})
	}
}

func TestEntityPointer(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"fully qualified", "SALES.PUBLIC.ORDERS", false},
		{"too few parts", "PUBLIC.ORDERS", true},
		{"too many parts", "A.B.C.D", true},
		{"empty part", "SALES..ORDERS", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseEntityPointer(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseEntityPointer(%q) error = %v", tt.in, err)
			}
			if !tt.wantErr && p.String() != tt.in {
				t.Errorf("String() = %q, want %q", p.String(), tt.in)
			}
		})
	}
}

func TestEntityDetail_Text(t *testing.T) {
	d := EntityDetail{
		Name:       "SALES.PUBLIC.ORDERS",
		Condensed:  "id, total",
		FullSchema: "id INT, total NUMBER",
		Sample:     "1, 9.99",
	}

	if got := d.Text(VerbosityShort); got != "SALES.PUBLIC.ORDERS: id, total" {
		t.Errorf("Text(short) = %q", got)
	}
	want := "SALES.PUBLIC.ORDERS\nid INT, total NUMBER\nSample:\n1, 9.99"
	if got := d.Text(VerbosityFull); got != want {
		t.Errorf("Text(full) = %q, want %q", got, want)
	}
}

func TestThreadStats_HasHuman(t *testing.T) {
	s := ThreadStats{Humans: []string{"ana"}}
	if !s.HasHuman("ana") || s.HasHuman("bo") {
		t.Errorf("HasHuman() wrong for %v", s.Humans)
	}
}
