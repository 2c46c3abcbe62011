// Package letters renders HR documents issued from approved requests.
package letters

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// IncomeLetter is the data printed on an income certification letter.
type IncomeLetter struct {
	Company      string
	EmployeeName string
	HireDate     time.Time
	Addressee    string
	Purpose      string
	IssuedAt     time.Time
	Reference    string
}

// RenderIncomeLetter returns the letter as a PDF document.
func RenderIncomeLetter(l IncomeLetter) ([]byte, error) {
	company := strings.TrimSpace(l.Company)
	if company == "" {
		company = "Human Resources"
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Income letter", true)
	pdf.SetAuthor(company, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr(company))
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, l.IssuedAt.Format("2006-01-02"))
	pdf.Ln(7)
	if l.Reference != "" {
		pdf.Cell(0, 7, "Ref: "+l.Reference)
		pdf.Ln(7)
	}
	pdf.Ln(5)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, tr("To: "+l.Addressee))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	body := fmt.Sprintf(
		"This letter certifies that %s has been employed by %s since %s and is currently an active employee.",
		l.EmployeeName, company, l.HireDate.Format("January 2, 2006"),
	)
	pdf.MultiCell(0, 7, tr(body), "", "L", false)
	pdf.Ln(4)
	pdf.MultiCell(0, 7, tr("This letter is issued for the following purpose: "+l.Purpose), "", "L", false)
	pdf.Ln(16)

	pdf.Cell(0, 7, "Human Resources")
	pdf.Ln(7)
	pdf.Cell(0, 7, tr(company))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
