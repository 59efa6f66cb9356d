package shopapi

import "testing"

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		name    string
		pw      string
		wantErr bool
	}{
		{"valid", "Str0ng!pw", false},
		{"too short", "S1!a", true},
		{"no upper", "weak1!pass", true},
		{"no lower", "WEAK1!PASS", true},
		{"no digit", "Weakpass!!", true},
		{"no special", "Weakpass11", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validatePassword(tc.pw)
			if (err != nil) != tc.wantErr {
				t.Fatalf("validatePassword(%q) = %v, wantErr %v", tc.pw, err, tc.wantErr)
			}
		})
	}
}
