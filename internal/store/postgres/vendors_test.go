package postgres

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secdir/internal/queries"
)

const listTemplates = `
-- QUERY: LIST_VENDORS
SELECT v.id FROM vendors v;

-- QUERY: SEARCH_VENDORS_BY_NAME
SELECT v.id FROM vendors v WHERE v.name ILIKE $1;

-- QUERY: SEARCH_VENDORS_BY_CITY
SELECT v.id FROM vendors v WHERE v.city ILIKE $1;

-- QUERY: GET_VENDORS_BY_CITY
SELECT v.id FROM vendors v WHERE v.city = $1;
`

func loadTestRegistry(t *testing.T) queries.Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "queries.sql")
	require.NoError(t, os.WriteFile(path, []byte(listTemplates), 0o644))
	reg, err := queries.Load(path)
	require.NoError(t, err)
	return reg
}

func TestBuildListQueryDefaults(t *testing.T) {
	reg := loadTestRegistry(t)

	q, args, err := buildListQuery(VendorFilter{}, reg)
	require.NoError(t, err)
	assert.Empty(t, args)
	assert.Equal(t, "SELECT v.id FROM vendors v ORDER BY v.name LIMIT 10 OFFSET 0", q)
}

func TestBuildListQueryNameSearchWins(t *testing.T) {
	reg := loadTestRegistry(t)

	q, args, err := buildListQuery(VendorFilter{Name: "acme", City: "Berlin"}, reg)
	require.NoError(t, err)
	assert.Equal(t, []any{"%acme%"}, args)
	assert.Contains(t, q, "v.name ILIKE $1")
}

func TestBuildListQueryCityVariants(t *testing.T) {
	reg := loadTestRegistry(t)

	q, args, err := buildListQuery(VendorFilter{City: "Berlin"}, reg)
	require.NoError(t, err)
	assert.Equal(t, []any{"%Berlin%"}, args)
	assert.Contains(t, q, "v.city ILIKE $1")

	q, args, err = buildListQuery(VendorFilter{City: "Berlin", CityExact: true}, reg)
	require.NoError(t, err)
	assert.Equal(t, []any{"Berlin"}, args)
	assert.Contains(t, q, "v.city = $1")
}

func TestBuildListQuerySortWhitelist(t *testing.T) {
	reg := loadTestRegistry(t)

	q, _, err := buildListQuery(VendorFilter{Sort: "rating"}, reg)
	require.NoError(t, err)
	assert.Contains(t, q, "ORDER BY avg_rating DESC, v.name")

	q, _, err = buildListQuery(VendorFilter{Sort: "city"}, reg)
	require.NoError(t, err)
	assert.Contains(t, q, "ORDER BY v.city, v.name")

	// Anything off the whitelist falls back to name order.
	q, _, err = buildListQuery(VendorFilter{Sort: "1; DROP TABLE vendors"}, reg)
	require.NoError(t, err)
	assert.Contains(t, q, "ORDER BY v.name LIMIT")
}

func TestBuildListQueryPagination(t *testing.T) {
	reg := loadTestRegistry(t)

	q, _, err := buildListQuery(VendorFilter{Page: 3}, reg)
	require.NoError(t, err)
	assert.Contains(t, q, "LIMIT 10 OFFSET 20")

	// Page zero and negative pages clamp to the first page.
	q, _, err = buildListQuery(VendorFilter{Page: -2}, reg)
	require.NoError(t, err)
	assert.Contains(t, q, "OFFSET 0")
}

func TestBuildListQueryMissingTemplate(t *testing.T) {
	reg, err := queries.Load(filepath.Join(t.TempDir(), "missing.sql"))
	require.Error(t, err)

	_, _, err = buildListQuery(VendorFilter{}, reg)
	assert.ErrorIs(t, err, queries.ErrTemplateNotFound)
}
