package report

import (
	"bytes"
	"fmt"

	"github.com/phpdave11/gofpdf"

	"mekaniku/internal/models"
	"mekaniku/internal/utils"
)

// Document is everything printed on a service report.
type Document struct {
	Report   *models.Report
	Booking  *models.Booking
	QRCode   []byte
	Currency string
}

func RenderPDF(doc Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Service Report", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "SERVICE REPORT")
	pdf.Ln(12)

	b := doc.Booking
	pdf.SetFont("Helvetica", "", 12)
	for _, line := range []string{
		"Report ID   : " + doc.Report.ID,
		"Booking ID  : " + b.ID,
		"Workshop    : " + safe(workshopName(b), "-"),
		"Customer    : " + safe(customerName(b), "-"),
		"Vehicle     : " + safe(vehicleLabel(b), "-"),
		"Service     : " + safe(serviceName(b), "-"),
		"Scheduled   : " + utils.FormatSchedule(b.ScheduledAt),
		"Issued      : " + utils.FormatSchedule(doc.Report.CreatedAt),
	} {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Summary:")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, doc.Report.Summary, "", "", false)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Total: %s %s", currencyLabel(doc.Currency), utils.FormatAmount(doc.Report.TotalCost)))
	pdf.Ln(12)

	if len(doc.QRCode) > 0 {
		name := "qr-" + doc.Report.ID
		pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(doc.QRCode))
		pdf.ImageOptions(name, 15, pdf.GetY(), 45, 45, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		pdf.SetY(pdf.GetY() + 48)
	}

	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Scan the QR code or submit its verification code to confirm this report was issued by the workshop.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render report pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func workshopName(b *models.Booking) string {
	if b.Workshop == nil {
		return ""
	}
	return b.Workshop.Name
}

func customerName(b *models.Booking) string {
	if b.Customer == nil {
		return ""
	}
	return b.Customer.Name
}

func vehicleLabel(b *models.Booking) string {
	if b.Vehicle == nil {
		return ""
	}
	return fmt.Sprintf("%s %s (%s)", b.Vehicle.Brand, b.Vehicle.Model, b.Vehicle.PlateNo)
}

func serviceName(b *models.Booking) string {
	if b.Service == nil {
		return ""
	}
	return b.Service.Name
}

func currencyLabel(c string) string {
	if c == "" {
		return "IDR"
	}
	return string(bytes.ToUpper([]byte(c)))
}

func safe(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
