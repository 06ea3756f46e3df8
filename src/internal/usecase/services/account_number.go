package services

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"

	"github.com/api-sage/account-ledger/src/internal/domain"
)

const defaultBBANLength = 18

// AccountNumberGenerator hands out candidate account numbers. Uniqueness is
// enforced by the repository, not the generator.
type AccountNumberGenerator interface {
	NextAccountNumber() (string, error)
}

// IBANGenerator builds ISO 13616 style numbers: country code, mod-97 check
// digits and a random numeric BBAN.
type IBANGenerator struct {
	country    string
	bbanLength int
	random     io.Reader
}

func NewIBANGenerator(country string, bbanLength int) (*IBANGenerator, error) {
	country = strings.ToUpper(strings.TrimSpace(country))
	if len(country) != 2 || !isUpperAlpha(country) {
		return nil, fmt.Errorf("country code %q must be two letters", country)
	}
	if bbanLength <= 0 {
		bbanLength = defaultBBANLength
	}
	if 4+bbanLength > domain.MaxAccountNumberLength {
		return nil, fmt.Errorf("bban length %d exceeds the %d character limit", bbanLength, domain.MaxAccountNumberLength)
	}

	return &IBANGenerator{country: country, bbanLength: bbanLength, random: rand.Reader}, nil
}

func (g *IBANGenerator) NextAccountNumber() (string, error) {
	bban, err := randomDigits(g.random, g.bbanLength)
	if err != nil {
		return "", fmt.Errorf("generate bban: %w", err)
	}

	check := 98 - mod97(bban+g.country+"00")
	return fmt.Sprintf("%s%02d%s", g.country, check, bban), nil
}

// ValidIBANChecksum reports whether number carries valid mod-97 check digits.
func ValidIBANChecksum(number string) bool {
	if len(number) < 5 || len(number) > domain.MaxAccountNumberLength {
		return false
	}
	if !isUpperAlpha(number[:2]) || !isDigits(number[2:4]) {
		return false
	}
	for _, ch := range number {
		if (ch < 'A' || ch > 'Z') && (ch < '0' || ch > '9') {
			return false
		}
	}
	return mod97(number[4:]+number[:4]) == 1
}

// mod97 treats s as a number with letters expanded to 10..35.
func mod97(s string) int {
	rem := 0
	for _, ch := range s {
		switch {
		case ch >= '0' && ch <= '9':
			rem = (rem*10 + int(ch-'0')) % 97
		case ch >= 'A' && ch <= 'Z':
			rem = (rem*100 + int(ch-'A') + 10) % 97
		}
	}
	return rem
}

func randomDigits(r io.Reader, n int) (string, error) {
	var b strings.Builder
	b.Grow(n)

	buf := make([]byte, n)
	for b.Len() < n {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		for _, v := range buf {
			// 250 is the largest multiple of 10 below 256; keeps digits uniform.
			if v >= 250 || b.Len() == n {
				continue
			}
			b.WriteByte('0' + v%10)
		}
	}
	return b.String(), nil
}

func isUpperAlpha(s string) bool {
	for _, ch := range s {
		if ch < 'A' || ch > 'Z' {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}
