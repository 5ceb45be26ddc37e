package qrcode

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidToken is returned for malformed or tampered verification codes.
var ErrInvalidToken = errors.New("invalid verification code")

// signatureLength is the number of hex characters kept from the HMAC.
const signatureLength = 32

// Claims is the data carried by a certificate verification code. It holds
// identifiers only so that a printed code never leaks resident details.
type Claims struct {
	CertificateNumber string
	ResidentRef       string
	IssuedAt          time.Time
}

// Signer creates and validates verification codes printed on certificates.
type Signer struct {
	secret []byte
}

// NewSigner constructs a signer with the provided secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Encode returns a compact URL-safe code for the claims.
func (s *Signer) Encode(claims Claims) (string, error) {
	if claims.CertificateNumber == "" || claims.ResidentRef == "" || claims.IssuedAt.IsZero() {
		return "", fmt.Errorf("certificate number, resident and issue time required")
	}
	if len(s.secret) == 0 {
		return "", fmt.Errorf("signing secret missing")
	}
	number := base64.RawURLEncoding.EncodeToString([]byte(claims.CertificateNumber))
	resident := base64.RawURLEncoding.EncodeToString([]byte(claims.ResidentRef))
	ts := strconv.FormatInt(claims.IssuedAt.UTC().Unix(), 36)
	signature := s.sign(number, resident, ts)
	return strings.Join([]string{number, resident, ts, signature}, "."), nil
}

// Decode validates the signature and returns the embedded claims.
func (s *Signer) Decode(code string) (Claims, error) {
	parts := strings.Split(code, ".")
	if len(parts) != 4 {
		return Claims{}, ErrInvalidToken
	}
	number, resident, ts, signature := parts[0], parts[1], parts[2], parts[3]

	expected := s.sign(number, resident, ts)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return Claims{}, ErrInvalidToken
	}

	rawNumber, err := base64.RawURLEncoding.DecodeString(number)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	rawResident, err := base64.RawURLEncoding.DecodeString(resident)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	unix, err := strconv.ParseInt(ts, 36, 64)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	return Claims{
		CertificateNumber: string(rawNumber),
		ResidentRef:       string(rawResident),
		IssuedAt:          time.Unix(unix, 0).UTC(),
	}, nil
}

// VerifyURL joins the public verification endpoint with a code.
func VerifyURL(baseURL, code string) string {
	if baseURL == "" {
		return code
	}
	return strings.TrimRight(baseURL, "/") + "/" + code
}

func (s *Signer) sign(number, resident, ts string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(number + "|" + resident + "|" + ts))
	return hex.EncodeToString(mac.Sum(nil))[:signatureLength]
}
