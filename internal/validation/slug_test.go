package validation

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Summer Drop", "summer-drop"},
		{"  My   New Single!  ", "my-new-single"},
		{"Beyoncé & Jay", "beyonce-jay"},
		{"already-a-slug", "already-a-slug"},
		{"UPPER case 2024", "upper-case-2024"},
		{"---", ""},
		{"", ""},
		{"日本語", ""},
		{"mix 日本 match", "mix-match"},
	}

	for _, tt := range tests {
		got := Slugify(tt.in)
		if got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateSlug(t *testing.T) {
	valid := []string{"summer-drop", "a", "track-2"}
	for _, s := range valid {
		if !ValidateSlug(s) {
			t.Errorf("ValidateSlug(%q) = false, want true", s)
		}
	}

	invalid := []string{"", "Summer-Drop", "has space", "trailing-", "-leading", "double--hyphen"}
	for _, s := range invalid {
		if ValidateSlug(s) {
			t.Errorf("ValidateSlug(%q) = true, want false", s)
		}
	}
}
