package persist_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pptracker/recorder/internal/config"
	"github.com/pptracker/recorder/internal/persist"
)

func TestNew_KnownTypes(t *testing.T) {
	for _, typ := range []string{"jsonfile", "sqlite", "postgres"} {
		t.Run(typ, func(t *testing.T) {
			b, err := persist.New(config.StorageConfig{Type: typ}, nil)
			require.NoError(t, err)
			assert.NotNil(t, b)
		})
	}
}

func TestNew_UnknownType(t *testing.T) {
	_, err := persist.New(config.StorageConfig{Type: "carrierpigeon"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage type")
}
