package content

import (
	"strings"
	"testing"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"Simple", "alice", false},
		{"Mixed", "Bob_the.builder-2", false},
		{"Empty", "", true},
		{"Space", "alice smith", true},
		{"Markup", "<b>alice</b>", true},
		{"Unicode", "алиса", true},
		{"Too long", strings.Repeat("a", MaxUsernameLength+1), true},
		{"Max length", strings.Repeat("a", MaxUsernameLength), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUsername(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
