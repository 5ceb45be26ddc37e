package export

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	goqrcode "github.com/skip2/go-qrcode"
)

// CertificateDocument holds everything printed on an issued certificate.
type CertificateDocument struct {
	BarangayName      string
	Municipality      string
	Province          string
	CertificateType   string
	CertificateNumber string
	ResidentName      string
	Purpose           string
	IssuedAt          time.Time
	ValidUntil        time.Time
	SignerName        string
	SignaturePath     string
	VerifyURL         string
}

// CertificatePDF renders issued certificates as single page A4 documents.
type CertificatePDF struct {
	qrSize int
}

// NewCertificatePDF constructs the renderer.
func NewCertificatePDF() *CertificatePDF {
	return &CertificatePDF{qrSize: 256}
}

// Render creates the certificate PDF. The verification QR code is required;
// the signature image is embedded only when the file is readable.
func (r *CertificatePDF) Render(doc CertificateDocument) ([]byte, error) {
	if doc.CertificateNumber == "" {
		return nil, fmt.Errorf("certificate number required")
	}
	if doc.VerifyURL == "" {
		return nil, fmt.Errorf("verification url required")
	}
	png, err := goqrcode.Encode(doc.VerifyURL, goqrcode.Medium, r.qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 6, "Republic of the Philippines", "", 1, "C", false, 0, "")
	if doc.Province != "" {
		pdf.CellFormat(0, 6, "Province of "+doc.Province, "", 1, "C", false, 0, "")
	}
	if doc.Municipality != "" {
		pdf.CellFormat(0, 6, doc.Municipality, "", 1, "C", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 8, "BARANGAY "+strings.ToUpper(doc.BarangayName), "", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, strings.ToUpper(doc.CertificateType), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, "No. "+doc.CertificateNumber, "", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 12)
	body := fmt.Sprintf("This is to certify that %s is a resident of this barangay. This certification is issued upon request for the purpose of %s.",
		strings.ToUpper(doc.ResidentName), strings.TrimSpace(doc.Purpose))
	pdf.MultiCell(0, 7, body, "", "J", false)
	pdf.Ln(6)
	pdf.MultiCell(0, 7, fmt.Sprintf("Issued on %s and valid until %s.",
		doc.IssuedAt.Format("January 2, 2006"), doc.ValidUntil.Format("January 2, 2006")), "", "J", false)
	pdf.Ln(20)

	if doc.SignaturePath != "" {
		if _, statErr := os.Stat(doc.SignaturePath); statErr == nil {
			pdf.ImageOptions(doc.SignaturePath, 130, pdf.GetY()-12, 40, 0, false, gofpdf.ImageOptions{ReadDpi: true}, 0, "")
		}
	}
	pdf.SetX(110)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(80, 6, strings.ToUpper(doc.SignerName), "T", 1, "C", false, 0, "")
	pdf.SetX(110)
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(80, 5, "Punong Barangay", "", 1, "C", false, 0, "")

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("verify-qr", opts, bytes.NewReader(png))
	pdf.ImageOptions("verify-qr", 20, 240, 35, 35, false, opts, 0, "")
	pdf.SetXY(58, 255)
	pdf.SetFont("Arial", "", 8)
	pdf.CellFormat(0, 4, "Scan to verify authenticity", "", 1, "L", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
