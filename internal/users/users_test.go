package users

import (
	"testing"

	"github.com/parkozhao/spendscope/internal/config"
)

func TestIdentify(t *testing.T) {
	reg := NewRegistry([]config.UserProfile{
		{
			ID:            "parko",
			DisplayName:   "Parko",
			Aliases:       []string{"Parko", "赵先生"},
			AlipayAccount: "13800000000",
		},
		{
			ID:      "lin",
			Aliases: []string{"Lin"},
		},
	}, "primary")

	tests := []struct {
		name    string
		account string
		want    string
	}{
		{"Parko", "", "parko"},
		{"PARKO", "", "parko"},      // case-insensitive alias
		{"", "13800000000", "parko"}, // account match
		{"赵先生", "", "parko"},
		{"Lin", "", "lin"},
		{"Nobody", "", "primary"},
		{"", "", "primary"},
	}

	for _, tt := range tests {
		if got := reg.Identify(tt.name, tt.account); got != tt.want {
			t.Errorf("Identify(%q, %q) = %q, want %q", tt.name, tt.account, got, tt.want)
		}
	}
}
