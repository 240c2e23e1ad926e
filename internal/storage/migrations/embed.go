package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// PostgresFS holds the ledger state schema.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the analytics record schema.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS

// Migration is one schema file. Name orders it and identifies it in the
// schema_migrations table of the target database.
type Migration struct {
	Name string
	SQL  string
}

// Postgres returns the ledger state schema in apply order.
func Postgres() ([]Migration, error) {
	return load(PostgresFS, "postgres")
}

// Clickhouse returns the analytics schema in apply order.
func Clickhouse() ([]Migration, error) {
	return load(ClickhouseFS, "clickhouse")
}

func load(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s migrations: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	migs := make([]Migration, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, dir+"/"+name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		migs = append(migs, Migration{Name: name, SQL: string(data)})
	}
	return migs, nil
}
