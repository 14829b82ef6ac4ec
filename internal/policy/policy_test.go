package policy

import "testing"

func TestCanManage(t *testing.T) {
	p := New([]string{"alice", "bob"}, nil)

	tests := []struct {
		principal string
		want      bool
	}{
		{"alice", true},
		{"bob", true},
		{"mallory", false},
		{"", false},
		{"Alice", false}, // principals are case-sensitive
	}

	for _, tt := range tests {
		if got := p.CanManage(tt.principal); got != tt.want {
			t.Errorf("CanManage(%q) = %v, want %v", tt.principal, got, tt.want)
		}
	}
}

func TestRequiresSecondFactor(t *testing.T) {
	p := New([]string{"alice", "bob"}, []string{"alice"})

	tests := []struct {
		principal string
		want      bool
	}{
		{"alice", false}, // trusted, exempt
		{"bob", true},
		{"mallory", true},
	}

	for _, tt := range tests {
		if got := p.RequiresSecondFactor(tt.principal); got != tt.want {
			t.Errorf("RequiresSecondFactor(%q) = %v, want %v", tt.principal, got, tt.want)
		}
	}
}

func TestEmptyPolicy(t *testing.T) {
	p := New(nil, nil)
	if p.CanManage("anyone") {
		t.Error("empty allow-list must not authorize anyone")
	}
	if !p.RequiresSecondFactor("anyone") {
		t.Error("second factor must default to required")
	}
}
