package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatements(t *testing.T) {
	input := `-- header comment
CREATE TABLE a (x UInt8) ENGINE = Memory;

-- second
CREATE TABLE b (y String) ENGINE = Memory;
`
	stmts := Statements(input)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x UInt8) ENGINE = Memory", stmts[0])
	assert.Equal(t, "CREATE TABLE b (y String) ENGINE = Memory", stmts[1])
}

func TestStatements_QuotedSemicolons(t *testing.T) {
	stmts := Statements(`SELECT 'a;b'; SELECT 'it''s; fine'; SELECT 'back\'slash;'`)
	require.Len(t, stmts, 3)
	assert.Equal(t, "SELECT 'a;b'", stmts[0])
	assert.Equal(t, "SELECT 'it''s; fine'", stmts[1])
	assert.Equal(t, `SELECT 'back\'slash;'`, stmts[2])
}

func TestStatements_Comments(t *testing.T) {
	stmts := Statements("CREATE TABLE x (a UInt8) -- trailing; note\nENGINE = Memory;\nSELECT '--kept'")
	require.Len(t, stmts, 2)
	assert.NotContains(t, stmts[0], "trailing")
	assert.True(t, strings.HasSuffix(stmts[0], "ENGINE = Memory"))
	assert.Equal(t, "SELECT '--kept'", stmts[1])
}

func TestStatements_Empty(t *testing.T) {
	assert.Empty(t, Statements("-- only a comment\n;\n  ;"))
}

func TestEmbeddedMigrations(t *testing.T) {
	pg, err := Postgres()
	require.NoError(t, err)
	require.NotEmpty(t, pg)

	versions := make([]string, len(pg))
	for i, m := range pg {
		versions[i] = m.Version
	}
	assert.IsIncreasing(t, versions)
	assert.Equal(t, "001_wallets.sql", versions[0])

	ch, err := ClickHouse()
	require.NoError(t, err)
	require.NotEmpty(t, ch)
	for _, m := range ch {
		assert.NotEmpty(t, Statements(m.SQL), m.Version)
	}
}
