package scraper

import "testing"

func TestExtractPrice(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"From $129.99 - $199.99", "129.99", true},
		{"$48.00", "48", true},
		{"$1,299.00", "1299", true},
		{"USD 52.5", "52.5", true},
		{"$0.00", "0", true},
		{"Contact us", "", false},
		{"", "", false},
		{"$.99", "0.99", true},
		{"1.299.00", "1.3", true},
	}
	for _, tt := range tests {
		got, ok := ExtractPrice(tt.in)
		if ok != tt.ok {
			t.Errorf("ExtractPrice(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && got.String() != tt.want {
			t.Errorf("ExtractPrice(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
