package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeToken(t *testing.T) {
	createdAt := time.Date(2025, 5, 15, 14, 30, 45, 123456789, time.UTC)

	token := EncodeToken(createdAt, "txn-42")
	assert.NotEmpty(t, token)

	decodedAt, decodedID, err := DecodeToken(token)
	require.NoError(t, err)
	assert.True(t, createdAt.Equal(decodedAt))
	assert.Equal(t, "txn-42", decodedID)

	// Non-UTC input round trips to the same instant.
	local := createdAt.In(time.FixedZone("IST", 5*3600+1800))
	decodedAt, _, err = DecodeToken(EncodeToken(local, "txn-42"))
	require.NoError(t, err)
	assert.True(t, local.Equal(decodedAt))
}

func TestDecodeTokenError(t *testing.T) {
	_, _, err := DecodeToken("this is not base64!")
	assert.ErrorContains(t, err, "base64 decode")

	noSeparator := base64.RawURLEncoding.EncodeToString([]byte("2025-05-15T00:00:00Z"))
	_, _, err = DecodeToken(noSeparator)
	assert.ErrorContains(t, err, "split")

	badDate := base64.RawURLEncoding.EncodeToString([]byte("notadate|txn-1"))
	_, _, err = DecodeToken(badDate)
	assert.ErrorContains(t, err, "created_at parse")
}
