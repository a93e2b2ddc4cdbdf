package verification

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"math/big"
	"regexp"
	"strings"

	"github.com/sbilibin2017/gw-escrow-market/internal/models"
)

const (
	codePrefix   = "KODE-"
	codeLength   = 6
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Pattern matches every code produced by Generate.
var Pattern = regexp.MustCompile(`^KODE-[A-Z0-9]{6}$`)

// Generate returns a new pickup code of the shape KODE-XXXXXX.
// Codes are not deduplicated: each one is only ever compared against its own transaction.
func Generate() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))

	var sb strings.Builder
	sb.Grow(len(codePrefix) + codeLength)
	sb.WriteString(codePrefix)
	for i := 0; i < codeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(codeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// Match compares a submitted code with the stored one, ignoring case and surrounding
// whitespace. The comparison time does not depend on where the inputs differ.
func Match(stored, submitted string) bool {
	a := []byte(strings.ToUpper(strings.TrimSpace(stored)))
	b := []byte(strings.ToUpper(strings.TrimSpace(submitted)))
	if len(a) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// Generator produces codes; satisfied by GeneratorFunc(Generate).
type Generator interface {
	Generate() (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func() (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate() (string, error) { return f() }

// TransactionReader loads a transaction by id.
type TransactionReader interface {
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
}

// Service validates submitted codes against stored transactions.
type Service struct {
	reader TransactionReader
}

// NewService creates a new Service.
func NewService(reader TransactionReader) *Service {
	return &Service{reader: reader}
}

// Validate reports whether submitted matches the code of transaction id.
func (s *Service) Validate(ctx context.Context, id, submitted string) (bool, error) {
	tx, err := s.reader.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return Match(tx.VerificationCode, submitted), nil
}
