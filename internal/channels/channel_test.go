package channels

import "testing"

func TestAllowlist(t *testing.T) {
	open := NewAllowlist(nil)
	if !open.Empty() || !open.IsAllowed("1|anyone") {
		t.Error("empty allowlist must allow everyone")
	}

	a := NewAllowlist([]string{"123", "@Alice", "456|bob", " "})
	tests := []struct {
		sender string
		want   bool
	}{
		{"123", true},
		{"123|someone", true},
		{"999|alice", true},
		{"456", true},
		{"777|bob", true},
		{"999|carol", false},
		{"999", false},
	}
	for _, tt := range tests {
		if got := a.IsAllowed(tt.sender); got != tt.want {
			t.Errorf("IsAllowed(%q) = %v, want %v", tt.sender, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("привет", 10); got != "привет" {
		t.Errorf("got %q", got)
	}
	if got := Truncate("привет мир", 6); got != "привет..." {
		t.Errorf("got %q", got)
	}
}
