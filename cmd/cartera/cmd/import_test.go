package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func writeTempBatch(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestValidateImportFlags(t *testing.T) {
	resetViper(t)
	path := writeTempBatch(t, "batch.csv", "Poliza,Fecha de emision\nAB-1,2026-01-10\n")

	viper.Set("file", path)
	viper.Set("delimiter", ",")
	viper.Set("output-format", "console")

	if err := validateImportFlags(importCmd, nil); err != nil {
		t.Errorf("valid flags rejected: %v", err)
	}

	viper.Set("output-format", "yaml")
	if err := validateImportFlags(importCmd, nil); err == nil {
		t.Error("invalid output format accepted")
	}

	viper.Set("output-format", "console")
	viper.Set("delimiter", ";;")
	if err := validateImportFlags(importCmd, nil); err == nil {
		t.Error("multi-character delimiter accepted")
	}

	viper.Set("delimiter", ",")
	viper.Set("file", filepath.Join(t.TempDir(), "missing.csv"))
	if err := validateImportFlags(importCmd, nil); err == nil {
		t.Error("missing file accepted")
	}
}

func TestReadBatchByExtension(t *testing.T) {
	resetViper(t)
	path := writeTempBatch(t, "batch.csv", "Poliza;Valor\nAB-1;100\n")
	delimiter = ";"

	rows, err := readBatch(path)
	if err != nil {
		t.Fatalf("readBatch: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if got := rows[0].Text("poliza"); got != "AB-1" {
		t.Errorf("poliza = %q", got)
	}
}

func TestValidateAlertFlags(t *testing.T) {
	resetViper(t)

	viper.Set("webhook-url", "http://localhost:3000/send-alert")
	viper.Set("to", "whatsapp:+573242139020")
	viper.Set("alert-window-min", 25)
	viper.Set("alert-window-max", 30)
	if err := validateAlertFlags(alertCmd, nil); err != nil {
		t.Errorf("valid flags rejected: %v", err)
	}

	viper.Set("alert-window-min", 40)
	if err := validateAlertFlags(alertCmd, nil); err == nil {
		t.Error("inverted window accepted")
	}

	viper.Set("alert-window-min", 25)
	viper.Set("to", "")
	if err := validateAlertFlags(alertCmd, nil); err == nil {
		t.Error("missing destination accepted")
	}
}
