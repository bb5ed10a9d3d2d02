package company

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidLogo indicates the logo is not an accepted image data URL.
var ErrInvalidLogo = errors.New("logo must be a base64 image data URL")

// Settings is the single company profile printed on invoices.
type Settings struct {
	Name            string     `json:"name"`
	Address         string     `json:"address"`
	Phone           string     `json:"phone"`
	Email           string     `json:"email"`
	Logo            string     `json:"logo"`
	BankAccountInfo string     `json:"bankAccountInfo"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
}

var logoMediaTypes = map[string]struct{}{
	"image/png":     {},
	"image/jpeg":    {},
	"image/gif":     {},
	"image/webp":    {},
	"image/svg+xml": {},
}

// ValidateLogo accepts an empty logo or data:image/<type>;base64,<payload>.
func ValidateLogo(logo string) error {
	if logo == "" {
		return nil
	}
	rest, ok := strings.CutPrefix(logo, "data:")
	if !ok {
		return ErrInvalidLogo
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return ErrInvalidLogo
	}
	mediaType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return ErrInvalidLogo
	}
	if _, ok := logoMediaTypes[strings.ToLower(mediaType)]; !ok {
		return fmt.Errorf("unsupported media type %q: %w", mediaType, ErrInvalidLogo)
	}
	if payload == "" {
		return ErrInvalidLogo
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return fmt.Errorf("decode payload: %w", ErrInvalidLogo)
	}
	return nil
}
