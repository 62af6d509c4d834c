package services

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

const codeVersion = "TIX1"

var ErrInvalidCode = errors.New("invalid ticket code")

// CodeClaims is the identity carried inside a scannable ticket code.
type CodeClaims struct {
	TicketID   string `json:"tid"`
	Number     string `json:"num"`
	EventID    string `json:"eid"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	TicketType string `json:"type"`
	Price      string `json:"price"`
	Currency   string `json:"cur"`
	IssuedAt   int64  `json:"iat"`
}

// CodeSigner produces opaque codes of the form TIX1.<payload>.<mac>, where
// payload is base58 JSON claims and mac is a keyed BLAKE2b-256 tag truncated
// to 128 bits.
type CodeSigner struct {
	key [32]byte
}

func NewCodeSigner(secret string) (*CodeSigner, error) {
	if len(secret) < 16 {
		return nil, errors.New("ticket code key must be at least 16 bytes")
	}
	return &CodeSigner{key: blake2b.Sum256([]byte(secret))}, nil
}

func (c *CodeSigner) Encode(claims CodeClaims) (string, error) {
	body, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal code claims: %w", err)
	}

	payload := base58.Encode(body)
	tag, err := c.tag(payload)
	if err != nil {
		return "", err
	}

	return codeVersion + "." + payload + "." + base58.Encode(tag), nil
}

// Decode verifies the tag and returns the embedded claims.
func (c *CodeSigner) Decode(code string) (*CodeClaims, error) {
	parts := strings.Split(code, ".")
	if len(parts) != 3 || parts[0] != codeVersion {
		return nil, ErrInvalidCode
	}

	want, err := c.tag(parts[1])
	if err != nil {
		return nil, err
	}
	got, err := base58.Decode(parts[2])
	if err != nil || subtle.ConstantTimeCompare(want, got) != 1 {
		return nil, ErrInvalidCode
	}

	body, err := base58.Decode(parts[1])
	if err != nil {
		return nil, ErrInvalidCode
	}

	var claims CodeClaims
	if err := json.Unmarshal(body, &claims); err != nil {
		return nil, ErrInvalidCode
	}

	return &claims, nil
}

func (c *CodeSigner) tag(payload string) ([]byte, error) {
	mac, err := blake2b.New256(c.key[:])
	if err != nil {
		return nil, fmt.Errorf("init code mac: %w", err)
	}
	mac.Write([]byte(payload))
	return mac.Sum(nil)[:16], nil
}

// newNumber returns PREFIX-YYMMDD-<base58 of 64 random bits>.
func newNumber(prefix string, now time.Time) (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate %s number: %w", prefix, err)
	}
	return fmt.Sprintf("%s-%s-%s", prefix, now.UTC().Format("060102"), base58.Encode(b)), nil
}
