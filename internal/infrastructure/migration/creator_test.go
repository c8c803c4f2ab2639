package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"spaces become underscores", "add ledger table", "add_ledger_table"},
		{"uppercase is lowered", "Add Sequence Counters", "add_sequence_counters"},
		{"mixed separators collapse", "fix--invoice  number", "fix_invoice_number"},
		{"punctuation is dropped", "v2: chain fingerprints!", "v2_chain_fingerprints"},
		{"trailing separator trimmed", "add index ", "add_index"},
		{"digits survive", "2026 fiscal year reset", "2026_fiscal_year_reset"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, slugify(tc.in))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	t.Run("writes an up and down pair", func(t *testing.T) {
		dir := t.TempDir()
		mf, err := CreateMigration(dir, "add ledger table", "append-only ledger entries")
		require.NoError(t, err)

		require.Len(t, mf.Version, 14)
		assert.Equal(t, filepath.Join(dir, mf.Version+"_add_ledger_table.up.sql"), mf.UpPath)
		assert.Equal(t, filepath.Join(dir, mf.Version+"_add_ledger_table.down.sql"), mf.DownPath)

		up, err := os.ReadFile(mf.UpPath)
		require.NoError(t, err)
		assert.Contains(t, string(up), "add ledger table")
		assert.Contains(t, string(up), "append-only ledger entries")
		assert.Contains(t, string(up), "forward migration")

		down, err := os.ReadFile(mf.DownPath)
		require.NoError(t, err)
		assert.Contains(t, string(down), "rollback migration")
	})

	t.Run("creates the migrations directory when missing", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "db", "migrations")
		mf, err := CreateMigration(dir, "init schema", "")
		require.NoError(t, err)
		assert.FileExists(t, mf.UpPath)
		assert.FileExists(t, mf.DownPath)
	})

	t.Run("empty description leaves no blank comment line", func(t *testing.T) {
		dir := t.TempDir()
		mf, err := CreateMigration(dir, "init schema", "")
		require.NoError(t, err)

		up, err := os.ReadFile(mf.UpPath)
		require.NoError(t, err)
		assert.NotContains(t, string(up), "-- \n")
	})
}

func TestListMigrations(t *testing.T) {
	t.Run("missing directory is an empty list", func(t *testing.T) {
		migrations, err := ListMigrations(filepath.Join(t.TempDir(), "nope"))
		require.NoError(t, err)
		assert.Empty(t, migrations)
	})

	t.Run("one entry per pair, sorted by version", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{
			"20260102120000_add_invoices.up.sql",
			"20260102120000_add_invoices.down.sql",
			"20260101080000_init_schema.up.sql",
			"20260101080000_init_schema.down.sql",
		} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("-- sql\n"), 0644))
		}
		require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

		migrations, err := ListMigrations(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"20260101080000_init_schema",
			"20260102120000_add_invoices",
		}, migrations)
	})

	t.Run("an orphan down file is not listed", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101080000_init_schema.down.sql"), []byte("-- sql\n"), 0644))

		migrations, err := ListMigrations(dir)
		require.NoError(t, err)
		assert.Empty(t, migrations)
	})
}
