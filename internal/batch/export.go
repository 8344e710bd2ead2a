package batch

import (
	"fmt"
	"io"

	"cartera-reconciler/internal/models"
	carterrors "cartera-reconciler/pkg/errors"

	"github.com/xuri/excelize/v2"
)

// exportColumns is the human-readable projection used by the portfolio
// download, in display order.
var exportColumns = []struct {
	header string
	value  func(*models.PolicyRecord) string
}{
	{"Aseguradora", func(p *models.PolicyRecord) string { return p.Aseguradora }},
	{"Nombre", func(p *models.PolicyRecord) string { return p.Nombre }},
	{"Asesor", func(p *models.PolicyRecord) string { return p.Asesor }},
	{"Placa", func(p *models.PolicyRecord) string { return p.Placa }},
	{"Ramo", func(p *models.PolicyRecord) string { return p.Ramo }},
	{"Póliza", func(p *models.PolicyRecord) string { return p.Poliza }},
	{"Fecha de emisión", func(p *models.PolicyRecord) string { return p.FechaEmision }},
	{"Fecha de vencimiento", func(p *models.PolicyRecord) string { return p.FechaVencimiento }},
	{"Valor", func(p *models.PolicyRecord) string { return p.Valor }},
	{"Pendiente", func(p *models.PolicyRecord) string { return p.Pendiente }},
	{"Recaudada", func(p *models.PolicyRecord) string { return p.Recaudada }},
	{"Observación", func(p *models.PolicyRecord) string { return p.Observacion }},
	{"Vigente", func(p *models.PolicyRecord) string { return p.Vigente }},
	{"Pago JL", func(p *models.PolicyRecord) string { return p.PagoJL }},
	{"Gestión", func(p *models.PolicyRecord) string { return p.Gestion }},
	{"Anulada", func(p *models.PolicyRecord) string { return p.Anulada }},
}

// ExportXLSX writes the record set as a spreadsheet using the standard
// portfolio column projection.
func ExportXLSX(records []*models.PolicyRecord, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Cartera"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return carterrors.Wrap(err, carterrors.CategoryInternal, carterrors.CodeUnexpectedError,
			"failed to create export sheet")
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headers := make([]interface{}, len(exportColumns))
	for i, col := range exportColumns {
		headers[i] = col.header
	}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return carterrors.Wrap(err, carterrors.CategoryInternal, carterrors.CodeUnexpectedError,
			"failed to write export headers")
	}

	for i, rec := range records {
		cells := make([]interface{}, len(exportColumns))
		for j, col := range exportColumns {
			cells[j] = col.value(rec)
		}
		axis := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, axis, &cells); err != nil {
			return carterrors.Wrap(err, carterrors.CategoryInternal, carterrors.CodeUnexpectedError,
				"failed to write export row").
				WithContext("row", i+2)
		}
	}

	if err := f.Write(w); err != nil {
		return carterrors.Wrap(err, carterrors.CategoryFile, carterrors.CodeFileCorrupted,
			"failed to write spreadsheet output")
	}
	return nil
}
