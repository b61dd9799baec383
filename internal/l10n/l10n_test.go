package l10n

import "testing"

func TestUntranslatedFallback(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"plain", T("list accepted content types"), "list accepted content types"},
		{"formatted", T("payload is %s", "commands"), "payload is commands"},
		{"singular", TN("%d line skipped", "%d lines skipped", 1, 1), "1 line skipped"},
		{"plural", TN("%d line skipped", "%d lines skipped", 3, 3), "3 lines skipped"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
