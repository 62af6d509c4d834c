package services_test

import (
	"strings"
	"testing"

	"github.com/srgjo27/ticket_marketplace/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeSigner(t *testing.T) {
	signer, err := services.NewCodeSigner(testCodeKey)
	require.NoError(t, err)

	claims := services.CodeClaims{
		TicketID:   "5f0c6a4e-8f0e-4d8a-9a53-5b8a1c2d3e4f",
		Number:     "TKT-261016-abc",
		Name:       "Ada Lovelace",
		TicketType: "VIP",
		Price:      "1500",
		Currency:   "USD",
		IssuedAt:   1760000000,
	}

	code, err := signer.Encode(claims)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(code, "TIX1."))

	t.Run("round trip", func(t *testing.T) {
		got, err := signer.Decode(code)
		require.NoError(t, err)
		assert.Equal(t, claims, *got)
	})

	t.Run("tampered payload", func(t *testing.T) {
		parts := strings.Split(code, ".")
		forged, err := signer.Encode(services.CodeClaims{TicketID: claims.TicketID, Price: "1"})
		require.NoError(t, err)
		parts[1] = strings.Split(forged, ".")[1]

		_, err = signer.Decode(strings.Join(parts, "."))
		assert.ErrorIs(t, err, services.ErrInvalidCode)
	})

	t.Run("other key", func(t *testing.T) {
		other, err := services.NewCodeSigner("a-completely-different-key")
		require.NoError(t, err)

		_, err = other.Decode(code)
		assert.ErrorIs(t, err, services.ErrInvalidCode)
	})

	t.Run("malformed", func(t *testing.T) {
		for _, bad := range []string{"", "TIX1", "TIX2.a.b", "TIX1.a.b.c", "TIX1.0OIl.xyz"} {
			_, err := signer.Decode(bad)
			assert.ErrorIs(t, err, services.ErrInvalidCode, bad)
		}
	})
}

func TestNewCodeSigner_ShortKey(t *testing.T) {
	_, err := services.NewCodeSigner("short")

	assert.Error(t, err)
}
