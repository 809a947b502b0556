package utils

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"local with leading zero", "0788123456", "+250788123456", false},
		{"already E164", "+250788123456", "+250788123456", false},
		{"country code no plus", "250788123456", "+250788123456", false},
		{"spaces and dashes", "0788-123-456", "+250788123456", false},
		{"airtel prefix", "0733123456", "+250733123456", false},
		{"empty", "", "", true},
		{"too short", "0788", "", true},
		{"letters", "phone", "", true},
		{"kenyan number", "+254712345678", "", true},
		{"us number", "+14155552671", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NormalizePhone(%q) = %q, expected error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizePhone(%q) returned error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
