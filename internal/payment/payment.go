// Package payment builds UPI payment references for programs that charge a fee.
// Payments are never verified; the participant submits the resulting transaction id.
package payment

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"

	"github.com/ultron-ftp/backend/internal/models"
)

// ErrNoFee is returned for programs that do not charge a registration fee.
var ErrNoFee = errors.New("program has no registration fee")

// Reference is what the client shows to collect a fee.
type Reference struct {
	ProgramID string  `json:"program_id"`
	Payee     string  `json:"payee"`
	UPIID     string  `json:"upi_id"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Note      string  `json:"note"`
	URI       string  `json:"uri"`
	QRPNG     string  `json:"qr_png_base64,omitempty"`
}

// Builder produces payment references.
type Builder struct {
	payeeName string
	currency  string
	qrSize    int
}

// NewBuilder creates a builder for the given payee display name.
func NewBuilder(payeeName, currency string, qrSize int) *Builder {
	if currency == "" {
		currency = "INR"
	}
	if qrSize <= 0 {
		qrSize = 256
	}
	return &Builder{payeeName: payeeName, currency: currency, qrSize: qrSize}
}

// Note returns the transaction note for a program.
func Note(p *models.Program) string {
	return "Registration for " + p.ProgramName
}

// queryUnsafe covers the characters url.PathEscape leaves intact that would split or
// alter a query value.
var queryUnsafe = strings.NewReplacer("&", "%26", "=", "%3D", "+", "%2B")

// escapeValue percent-encodes v per RFC 3986: spaces become %20 and '@' stays literal, so
// UPI apps decoding with plain percent-decoding see the original text.
func escapeValue(v string) string {
	return queryUnsafe.Replace(url.PathEscape(v))
}

// URI returns the upi://pay deep link for p. Values are percent-encoded; key order is fixed.
func (b *Builder) URI(p *models.Program) (string, error) {
	if !p.HasRegistrationFee || p.RegistrationFee == nil || p.UPIID == "" {
		return "", ErrNoFee
	}
	pairs := [][2]string{
		{"pa", p.UPIID},
		{"pn", b.payeeName},
		{"am", formatAmount(*p.RegistrationFee)},
		{"cu", b.currency},
		{"tn", Note(p)},
	}
	parts := make([]string, len(pairs))
	for i, kv := range pairs {
		parts[i] = kv[0] + "=" + escapeValue(kv[1])
	}
	return "upi://pay?" + strings.Join(parts, "&"), nil
}

// QR renders the deep link as a PNG QR code.
func (b *Builder) QR(p *models.Program) ([]byte, error) {
	uri, err := b.URI(p)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(uri, qrcode.Medium, b.qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// Build returns the full reference including an inline QR image.
func (b *Builder) Build(p *models.Program) (*Reference, error) {
	uri, err := b.URI(p)
	if err != nil {
		return nil, err
	}
	png, err := b.QR(p)
	if err != nil {
		return nil, err
	}
	return &Reference{
		ProgramID: p.ID.String(),
		Payee:     b.payeeName,
		UPIID:     p.UPIID,
		Amount:    *p.RegistrationFee,
		Currency:  b.currency,
		Note:      Note(p),
		URI:       uri,
		QRPNG:     base64.StdEncoding.EncodeToString(png),
	}, nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
