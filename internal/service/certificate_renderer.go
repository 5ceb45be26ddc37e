package service

import (
	"context"
	"fmt"

	"github.com/noah-isme/barangay-api/internal/models"
	"github.com/noah-isme/barangay-api/pkg/export"
	"github.com/noah-isme/barangay-api/pkg/qrcode"
)

// CertificateRenderer produces the printable document of an issued
// certificate and returns the stored asset reference.
type CertificateRenderer interface {
	Render(ctx context.Context, cert *models.IssuedCertificate, req *models.CertificateRequest, signer *Signer) (string, error)
}

type pdfEngine interface {
	Render(doc export.CertificateDocument) ([]byte, error)
}

type documentStore interface {
	Save(name string, data []byte) (string, error)
	Path(name string) string
}

type profileLookup interface {
	Profile(ctx context.Context) (*models.BarangayProfile, error)
}

// PDFCertificateRenderer renders certificates with gofpdf and keeps them on
// local storage under <year>/<number>.pdf.
type PDFCertificateRenderer struct {
	engine        pdfEngine
	store         documentStore
	profiles      profileLookup
	verifyBaseURL string
}

// NewPDFCertificateRenderer constructs the renderer.
func NewPDFCertificateRenderer(engine pdfEngine, store documentStore, profiles profileLookup, verifyBaseURL string) *PDFCertificateRenderer {
	if engine == nil {
		engine = export.NewCertificatePDF()
	}
	return &PDFCertificateRenderer{engine: engine, store: store, profiles: profiles, verifyBaseURL: verifyBaseURL}
}

// Render implements CertificateRenderer.
func (r *PDFCertificateRenderer) Render(ctx context.Context, cert *models.IssuedCertificate, req *models.CertificateRequest, signer *Signer) (string, error) {
	doc := export.CertificateDocument{
		CertificateType:   cert.CertificateType,
		CertificateNumber: cert.CertificateNumber,
		ResidentName:      firstNonEmpty(req.ResidentName, req.ResidentID),
		Purpose:           req.Purpose,
		IssuedAt:          cert.IssuedAt,
		ValidUntil:        cert.ValidUntil,
		SignerName:        cert.SignerName,
		VerifyURL:         qrcode.VerifyURL(r.verifyBaseURL, cert.QRPayload),
	}
	if signer != nil && signer.SignatureRef != "" {
		doc.SignaturePath = r.store.Path(signer.SignatureRef)
	}
	if r.profiles != nil {
		profile, err := r.profiles.Profile(ctx)
		if err != nil {
			return "", fmt.Errorf("load barangay profile: %w", err)
		}
		if profile != nil {
			doc.BarangayName = profile.Name
			doc.Municipality = profile.Municipality
			doc.Province = profile.Province
		}
	}

	data, err := r.engine.Render(doc)
	if err != nil {
		return "", fmt.Errorf("render certificate %s: %w", cert.CertificateNumber, err)
	}
	ref, err := r.store.Save(fmt.Sprintf("%d/%s.pdf", cert.IssuedAt.Year(), cert.CertificateNumber), data)
	if err != nil {
		return "", fmt.Errorf("store certificate %s: %w", cert.CertificateNumber, err)
	}
	return ref, nil
}
