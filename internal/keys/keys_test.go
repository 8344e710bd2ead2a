package keys

import "testing"

func TestTextKey(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase and trim", "  ABC-123  ", "abc123"},
		{"diacritics stripped", "Póliza Número", "polizanumero"},
		{"whitespace removed", "no.  poliza", "nopoliza"},
		{"punctuation removed", "Fecha de emisión", "fechadeemision"},
		{"empty", "   ", ""},
		{"digits preserved", "AB 00123", "ab00123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TextKey(tt.input); got != tt.want {
				t.Errorf("TextKey(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestBuildKey(t *testing.T) {
	tests := []struct {
		name     string
		policy   string
		emission interface{}
		want     string
	}{
		{"string date", "AB-123", "15/03/2024", "ab123_2024-03-15"},
		{"serial date", "AB-123", float64(45000), "ab123_2023-03-15"},
		{"accented policy", "PÓLIZA 9", "2024-01-05", "poliza9_2024-01-05"},
		{"missing policy", "", "2024-01-05", ""},
		{"missing date", "AB-123", "", ""},
		{"unparseable date", "AB-123", "no date here", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildKey(tt.policy, tt.emission); got != tt.want {
				t.Errorf("BuildKey(%q, %v) = %q, want %q", tt.policy, tt.emission, got, tt.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	row := map[string]interface{}{
		"No. Póliza ": "AB-123",
		"ASEGURADORA": "Sura",
		"Valor":       nil,
		"Prima":       "1500",
	}

	if got := Resolve(row, []string{"Poliza", "No. Poliza"}); got != "AB-123" {
		t.Errorf("Resolve policy = %v, want AB-123", got)
	}
	if got := Resolve(row, []string{"Aseguradora", "Compania"}); got != "Sura" {
		t.Errorf("Resolve aseguradora = %v, want Sura", got)
	}
	// nil values are passed over in favor of the next candidate.
	if got := Resolve(row, []string{"Valor", "Prima"}); got != "1500" {
		t.Errorf("Resolve valor = %v, want 1500", got)
	}
	if got := Resolve(row, []string{"Placa"}); got != "" {
		t.Errorf("Resolve missing = %v, want empty", got)
	}
	if got := Resolve(nil, []string{"Poliza"}); got != "" {
		t.Errorf("Resolve nil row = %v, want empty", got)
	}
}
