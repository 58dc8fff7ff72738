package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPending_Ordered(t *testing.T) {
	pending := Pending(nil)
	require.Len(t, pending, len(allMigrations))
	for i := 1; i < len(pending); i++ {
		assert.Less(t, pending[i-1].ID, pending[i].ID)
	}
}

func TestPending_SkipsApplied(t *testing.T) {
	pending := Pending(map[string]bool{"20261001120000_create_listings_table": true})
	require.Len(t, pending, len(allMigrations)-1)
	for _, m := range pending {
		assert.NotEqual(t, "20261001120000_create_listings_table", m.ID)
	}
}

func TestPending_AllApplied(t *testing.T) {
	applied := make(map[string]bool)
	for _, m := range allMigrations {
		applied[m.ID] = true
	}
	assert.Empty(t, Pending(applied))
}
