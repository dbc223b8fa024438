package validation

import (
	"strings"
	"testing"
)

func TestValidateDisplayName(t *testing.T) {
	tests := []struct {
		name    string
		display string
		wantErr bool
	}{
		{"simple name", "Speedy", false},
		{"empty is allowed here", "", false},
		{"unicode name", "疾走者", false},
		{"very long name allowed pre-truncation", strings.Repeat("a", 200), false},
		{"invalid utf8", string([]byte{0xff, 0xfe, 0x80}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDisplayName(tt.display)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDisplayName() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateAgentID(t *testing.T) {
	tests := []struct {
		name     string
		id       int
		maxSlots int
		wantErr  bool
	}{
		{"first slot", 1, 8, false},
		{"last slot", 8, 8, false},
		{"zero", 0, 8, true},
		{"negative", -1, 8, true},
		{"above max", 9, 8, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAgentID(tt.id, tt.maxSlots)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAgentID() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid http", "http://example.com", false},
		{"valid https", "https://example.com", false},
		{"empty", "", true},
		{"invalid scheme", "ftp://example.com", true},
		{"ws scheme rejected", "ws://example.com", true},
		{"no host", "http://", true},
		{"invalid format", "not-a-url", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateNonEmptyString(t *testing.T) {
	tests := []struct {
		name    string
		s       string
		wantErr bool
	}{
		{"non-empty", "hub", false},
		{"whitespace only", "   ", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNonEmptyString(tt.s, "field")
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNonEmptyString() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateStringLength(t *testing.T) {
	tests := []struct {
		name    string
		s       string
		min     int
		max     int
		wantErr bool
	}{
		{"within bounds", "hello", 1, 10, false},
		{"too short", "hi", 3, 10, true},
		{"too long", strings.Repeat("a", 11), 1, 10, true},
		{"counts code points not bytes", strings.Repeat("日", 5), 1, 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStringLength(tt.s, tt.min, tt.max, "field")
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStringLength() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
