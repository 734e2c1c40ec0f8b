package validation

import "testing"

func TestValidateOutputFormat(t *testing.T) {
	tests := []struct {
		name      string
		format    string
		expectErr bool
	}{
		{
			name:      "Valid pretty format",
			format:    "pretty",
			expectErr: false,
		},
		{
			name:      "Valid csv format",
			format:    "csv",
			expectErr: false,
		},
		{
			name:      "Valid json format",
			format:    "json",
			expectErr: false,
		},
		{
			name:      "Invalid format",
			format:    "xml",
			expectErr: true,
		},
		{
			name:      "Empty format",
			format:    "",
			expectErr: true,
		},
		{
			name:      "Case sensitive - uppercase",
			format:    "PRETTY",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format)
			if tt.expectErr && err == nil {
				t.Errorf("ValidateOutputFormat(%q) expected error, got nil", tt.format)
			}
			if !tt.expectErr && err != nil {
				t.Errorf("ValidateOutputFormat(%q) unexpected error: %v", tt.format, err)
			}
		})
	}
}
