package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestGetStorePassword(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, SetStorePassword("writer@db", "s3cret"))

	pw, err := GetStorePassword("writer@db")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", pw)

	_, err = GetStorePassword("missing@db")
	assert.Error(t, err)

	_, err = GetStorePassword(" ")
	assert.Error(t, err)
}
