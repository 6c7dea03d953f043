package statements

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/tsegai/nexbank/internal/models"
)

// RenderPDF lays out a simple statement: header with account holder and
// period, one row per transaction, newest first as delivered by the store.
func RenderPDF(fullName, period string, transactions []models.Transaction) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Account Statement")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fullName)
	pdf.Ln(6)
	pdf.Cell(0, 7, period)
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 10)
	headers := []struct {
		label string
		width float64
	}{
		{"Date", 28},
		{"Type", 22},
		{"From", 32},
		{"To", 32},
		{"Amount", 28},
		{"Description", 48},
	}
	for _, h := range headers {
		pdf.CellFormat(h.width, 8, h.label, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, txn := range transactions {
		pdf.CellFormat(28, 7, txn.CreatedAt.Format("2006-01-02"), "1", 0, "L", false, 0, "")
		pdf.CellFormat(22, 7, string(txn.Type), "1", 0, "L", false, 0, "")
		pdf.CellFormat(32, 7, txn.SenderAccountNumber, "1", 0, "L", false, 0, "")
		pdf.CellFormat(32, 7, txn.ReceiverAccountNumber, "1", 0, "L", false, 0, "")
		pdf.CellFormat(28, 7, txn.Amount.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(48, 7, txn.Description, "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	if len(transactions) == 0 {
		pdf.Cell(0, 8, "No transactions in this period.")
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.Cell(0, 6, fmt.Sprintf("%d transaction(s) in period", len(transactions)))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render statement pdf: %w", err)
	}
	return buf.Bytes(), nil
}
