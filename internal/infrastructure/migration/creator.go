package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const upHeader = `-- %s
-- created %s
%s
-- forward migration

`

const downHeader = `-- %s
-- created %s
%s
-- rollback migration

`

// MigrationFile describes the up/down SQL pair written for one migration.
type MigrationFile struct {
	Version     string
	Name        string
	Description string
	UpPath      string
	DownPath    string
}

// CreateMigration writes an empty up/down SQL pair into migrationsDir. The
// version prefix is the creation instant in YYYYMMDDHHMMSS form, which keeps
// lexical order equal to creation order.
func CreateMigration(migrationsDir, name, description string) (*MigrationFile, error) {
	if err := os.MkdirAll(migrationsDir, 0755); err != nil {
		return nil, fmt.Errorf("create migrations directory: %w", err)
	}

	now := time.Now()
	mf := &MigrationFile{
		Version:     now.Format("20060102150405"),
		Name:        name,
		Description: description,
	}
	base := mf.Version + "_" + slugify(name)
	mf.UpPath = filepath.Join(migrationsDir, base+".up.sql")
	mf.DownPath = filepath.Join(migrationsDir, base+".down.sql")

	created := now.Format(time.RFC3339)
	if err := writeStub(mf.UpPath, upHeader, name, created, description); err != nil {
		return nil, err
	}
	if err := writeStub(mf.DownPath, downHeader, name, created, description); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, err
	}
	return mf, nil
}

func writeStub(path, header, name, created, description string) error {
	desc := ""
	if description != "" {
		desc = "-- " + description + "\n"
	}
	content := fmt.Sprintf(header, name, created, desc)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write migration stub %s: %w", path, err)
	}
	return nil
}

// slugify lowercases the migration name and collapses separators to single
// underscores, so "Add Ledger Table" becomes add_ledger_table.
func slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			s := b.String()
			if len(s) > 0 && !strings.HasSuffix(s, "_") {
				b.WriteByte('_')
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// ListMigrations returns the sorted base names of the migrations in a
// directory, one entry per up/down pair. A missing directory is an empty
// list, not an error.
func ListMigrations(migrationsDir string) ([]string, error) {
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	migrations := make([]string, 0, len(entries)/2)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if base, ok := strings.CutSuffix(entry.Name(), ".up.sql"); ok {
			migrations = append(migrations, base)
		}
	}
	sort.Strings(migrations)
	return migrations, nil
}
