package domain

import "testing"

func TestHasValidHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
		want bool
	}{
		{"valid lowercase md5", "d41d8cd98f00b204e9800998ecf8427e", true},
		{"valid uppercase md5", "D41D8CD98F00B204E9800998ECF8427E", true},
		{"empty", "", false},
		{"too short", "d41d8cd98f00b204", false},
		{"too long", "d41d8cd98f00b204e9800998ecf8427e00", false},
		{"non-hex characters", "g41d8cd98f00b204e9800998ecf8427e", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &BookRecord{ContentHash: tt.hash}
			if got := r.HasValidHash(); got != tt.want {
				t.Errorf("HasValidHash(%q) = %v, want %v", tt.hash, got, tt.want)
			}
		})
	}
}

func TestHashKey_LowersCase(t *testing.T) {
	r := &BookRecord{ContentHash: "D41D8CD98F00B204E9800998ECF8427E"}
	if got := r.HashKey(); got != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Errorf("HashKey() = %q", got)
	}
}

func TestSourceToggles_Any(t *testing.T) {
	if (SourceToggles{}).Any() {
		t.Error("no sources enabled should report false")
	}
	if !(SourceToggles{Dbooks: true}).Any() {
		t.Error("one source enabled should report true")
	}
}
