package money

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"1000.00", 1000.00},
		{"1000", 1000},
		{"1,000.00", 1000.00},
		{"1000,00", 1000.00},
		{"1.234,56", 1234.56},
		{"R$ 1.234,56", 1234.56},
		{"R$280,00", 280.00},
		{" 76.00 ", 76.00},
		{"1 234,56", 1234.56},
		{"-15,5", -15.5},
		{"", 0},
		{"   ", 0},
		{"abc", 0},
		{"12x3", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Parse(tt.input); got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// Regression: 280.00 must never be read as 28000 (thousands/decimal mixup).
func TestParseDotDecimalNotThousands(t *testing.T) {
	if got := Parse("280.00"); got != 280.00 {
		t.Fatalf("Parse(280.00) = %v, want 280", got)
	}
}
