package taxtable

import (
	"math"
	"testing"
)

func TestYears(t *testing.T) {
	years := Years()
	if len(years) != 8 {
		t.Fatalf("len = %d, want 8", len(years))
	}
	if years[0] != 2026 || years[len(years)-1] != 2033 {
		t.Errorf("span = %d..%d, want 2026..2033", years[0], years[len(years)-1])
	}
	for i := 1; i < len(years); i++ {
		if years[i] != years[i-1]+1 {
			t.Fatalf("years not contiguous: %v", years)
		}
	}
}

func TestForYear(t *testing.T) {
	tests := []struct {
		year           int
		icmsFactor     float64
		pisCofinFactor float64
		cbs            float64
	}{
		{2026, 1.00, 1.00, 0.009},
		{2027, 1.00, 0.00, 0.088},
		{2029, 0.90, 0.00, 0.088},
		{2033, 0.00, 0.00, 0.088},
	}
	for _, tt := range tests {
		r, err := ForYear(tt.year)
		if err != nil {
			t.Fatalf("ForYear(%d): %v", tt.year, err)
		}
		if math.Abs(r.ICMSFactor-tt.icmsFactor) > 1e-9 ||
			math.Abs(r.PISCofinsFactor-tt.pisCofinFactor) > 1e-9 ||
			math.Abs(r.CBS-tt.cbs) > 1e-9 {
			t.Errorf("ForYear(%d) = %+v", tt.year, r)
		}
	}

	if _, err := ForYear(2025); err == nil {
		t.Error("ForYear(2025) should fail")
	}
	if _, err := ForYear(2034); err == nil {
		t.Error("ForYear(2034) should fail")
	}
}

func TestTimeline(t *testing.T) {
	tl, err := Timeline(2026)
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if tl["PIS"].Status != StatusSemAlteracao {
		t.Errorf("2026 PIS = %s", tl["PIS"].Status)
	}
	if tl["CBS"].Status != StatusNovo || tl["CBS"].Aliquota == nil {
		t.Fatalf("2026 CBS = %+v", tl["CBS"])
	}
	if math.Abs(*tl["CBS"].Aliquota-0.9) > 1e-9 {
		t.Errorf("2026 CBS aliquota = %v, want 0.9 (percent)", *tl["CBS"].Aliquota)
	}
	if tl["IS"].Status != StatusDefinidoPosteriormente {
		t.Errorf("IS = %s", tl["IS"].Status)
	}

	tl, _ = Timeline(2027)
	if tl["PIS"].Status != StatusExtinto || tl["COFINS"].Status != StatusExtinto {
		t.Error("2027 PIS/COFINS must be extinct")
	}

	tl, _ = Timeline(2029)
	if tl["ICMS"].Status != StatusReduzido {
		t.Errorf("2029 ICMS = %s", tl["ICMS"].Status)
	}

	tl, _ = Timeline(2033)
	if tl["ICMS"].Status != StatusExtinto {
		t.Errorf("2033 ICMS = %s", tl["ICMS"].Status)
	}
}
