package redis

import (
	"testing"

	"screenplay-wizard/internal/config"
)

func TestMirrorKey(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{prefix: "", want: "screenplay_wizard:mirror:guest"},
		{prefix: "custom", want: "custom:guest"},
		{prefix: "custom:", want: "custom:guest"},
	}
	for _, tt := range tests {
		m := NewMirror(nil, &config.MirrorConfig{KeyPrefix: tt.prefix})
		if got := m.Key("guest"); got != tt.want {
			t.Fatalf("prefix %q: expected %q, got %q", tt.prefix, tt.want, got)
		}
	}
}
