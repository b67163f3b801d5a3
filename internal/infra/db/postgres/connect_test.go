package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_RejectsMalformedDSN(t *testing.T) {
	_, err := Connect(context.Background(), "postgres://%zz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse postgres dsn")
}
