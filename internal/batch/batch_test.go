package batch

import (
	"bytes"
	"strings"
	"testing"

	"cartera-reconciler/internal/models"

	"github.com/xuri/excelize/v2"
)

func TestRowFieldResolution(t *testing.T) {
	row := Row{
		"No. PÓLIZA":        "AB-123",
		"Fecha de emision":  "15/03/2024",
		"Compañia":          "Sura",
		"Tomador":           "Ana Pérez",
		"Prima":             float64(1500),
	}

	if got := row.Text(FieldPoliza); got != "AB-123" {
		t.Errorf("poliza = %q", got)
	}
	if got := row.Text(FieldFechaEmision); got != "15/03/2024" {
		t.Errorf("fecha_emision = %q", got)
	}
	if got := row.Text(FieldAseguradora); got != "Sura" {
		t.Errorf("aseguradora = %q", got)
	}
	if got := row.Text(FieldNombre); got != "Ana Pérez" {
		t.Errorf("nombre = %q", got)
	}
	if got := row.Text(FieldValor); got != "1500" {
		t.Errorf("valor = %q", got)
	}
	if got := row.Text(FieldPlaca); got != "" {
		t.Errorf("missing placa = %q, want empty", got)
	}
}

func TestReadCSV(t *testing.T) {
	data := "Poliza;Fecha de emision;Valor\nAB-1;2024-01-05;100\nAB-2;06/01/2024;200\n"
	rows, err := ReadCSV(strings.NewReader(data), ';')
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if got := rows[0].Text(FieldPoliza); got != "AB-1" {
		t.Errorf("row 0 poliza = %q", got)
	}
	if got := rows[1].Text(FieldValor); got != "200" {
		t.Errorf("row 1 valor = %q", got)
	}
}

func TestReadCSVRaggedRows(t *testing.T) {
	data := "Poliza,Valor\nAB-1\nAB-2,200,extra\n"
	rows, err := ReadCSV(strings.NewReader(data), ',')
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if got := rows[0].Text(FieldValor); got != "" {
		t.Errorf("short row valor = %q, want empty", got)
	}
	if got := rows[1].Text(FieldValor); got != "200" {
		t.Errorf("row 1 valor = %q", got)
	}
}

func TestReadXLSXRoundTrip(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	headers := []interface{}{"Póliza", "Fecha de emisión", "Valor"}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		t.Fatal(err)
	}
	row1 := []interface{}{"AB-1", "2024-03-15", 1500.5}
	if err := f.SetSheetRow(sheet, "A2", &row1); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}

	rows, err := ReadXLSX(&buf)
	if err != nil {
		t.Fatalf("ReadXLSX: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if got := rows[0].Text(FieldPoliza); got != "AB-1" {
		t.Errorf("poliza = %q", got)
	}
	// numeric cells come back as float64
	if _, ok := rows[0].Value(FieldValor).(float64); !ok {
		t.Errorf("valor = %T, want float64", rows[0].Value(FieldValor))
	}
}

func TestExportXLSX(t *testing.T) {
	records := []*models.PolicyRecord{
		{Poliza: "AB-1", Aseguradora: "Sura", FechaEmision: "2024-03-15", Valor: "1500"},
		{Poliza: "AB-2", Nombre: "Ana", Anulada: "pendiente"},
	}

	var buf bytes.Buffer
	if err := ExportXLSX(records, &buf); err != nil {
		t.Fatalf("ExportXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("reopen export: %v", err)
	}
	defer f.Close()

	got, err := f.GetCellValue("Cartera", "F2")
	if err != nil {
		t.Fatal(err)
	}
	if got != "AB-1" {
		t.Errorf("F2 = %q, want AB-1", got)
	}
	got, err = f.GetCellValue("Cartera", "P3")
	if err != nil {
		t.Fatal(err)
	}
	if got != "pendiente" {
		t.Errorf("P3 = %q, want pendiente", got)
	}
}
