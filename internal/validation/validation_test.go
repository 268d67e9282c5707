package validation

import "testing"

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		wantErr bool
	}{
		{"valid", "0x1111111111111111111111111111111111111111", false},
		{"mixed case", "0xAbCd111111111111111111111111111111111111", false},
		{"empty", "", true},
		{"missing prefix", "1111111111111111111111111111111111111111", true},
		{"too short", "0x1111", true},
		{"non-hex", "0xzzzz111111111111111111111111111111111111", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddress(tt.address)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAddress(%q) error = %v, wantErr %v", tt.address, err, tt.wantErr)
			}
		})
	}
}

func TestValidateTxHash(t *testing.T) {
	valid := "0x1111111111111111111111111111111111111111111111111111111111111111"
	if err := ValidateTxHash(valid); err != nil {
		t.Errorf("ValidateTxHash(valid) error = %v", err)
	}
	if err := ValidateTxHash(""); err == nil {
		t.Error("ValidateTxHash(\"\") expected an error")
	}
	if err := ValidateTxHash("0x1234"); err == nil {
		t.Error("ValidateTxHash(short) expected an error")
	}
}

func TestValidateAmountString(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		wantErr bool
	}{
		{"integer", "100", false},
		{"fractional", "12.5", false},
		{"zero", "0", false},
		{"empty", "", true},
		{"negative", "-5", true},
		{"comma", "12,5", true},
		{"trailing dot", "12.", true},
		{"letters", "abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAmountString(tt.amount)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAmountString(%q) error = %v, wantErr %v", tt.amount, err, tt.wantErr)
			}
		})
	}
}
