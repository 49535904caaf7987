package migrations

import (
	"io/fs"
	"regexp"
	"sort"
	"strings"
	"testing"
)

var (
	createTablePattern = regexp.MustCompile(`(?is)CREATE TABLE IF NOT EXISTS (\w+) \((.*?)\n\);`)
	columnPattern      = regexp.MustCompile(`(?m)^\s+(\w+) `)
)

// schemaColumns extracts table -> sorted column names from every migration of a dialect.
func schemaColumns(t *testing.T, dialect string) map[string][]string {
	t.Helper()

	entries, err := fs.ReadDir(FS, dialect)
	if err != nil {
		t.Fatalf("read %s migrations: %v", dialect, err)
	}

	tables := make(map[string][]string)
	for _, entry := range entries {
		contents, err := fs.ReadFile(FS, dialect+"/"+entry.Name())
		if err != nil {
			t.Fatalf("read %s: %v", entry.Name(), err)
		}
		for _, match := range createTablePattern.FindAllStringSubmatch(string(contents), -1) {
			var cols []string
			for _, col := range columnPattern.FindAllStringSubmatch(match[2], -1) {
				if strings.EqualFold(col[1], "UNIQUE") {
					continue
				}
				cols = append(cols, col[1])
			}
			sort.Strings(cols)
			tables[match[1]] = cols
		}
	}
	return tables
}

func TestDialectSchemasDefineSameColumns(t *testing.T) {
	pg := schemaColumns(t, "postgres")
	lite := schemaColumns(t, "sqlite")

	if len(pg) == 0 {
		t.Fatal("expected postgres migrations to define tables")
	}
	if len(pg) != len(lite) {
		t.Fatalf("table count differs: postgres %d sqlite %d", len(pg), len(lite))
	}

	for table, cols := range pg {
		liteCols, ok := lite[table]
		if !ok {
			t.Fatalf("sqlite schema is missing table %s", table)
		}
		if strings.Join(cols, ",") != strings.Join(liteCols, ",") {
			t.Fatalf("table %s columns differ:\npostgres %v\nsqlite   %v", table, cols, liteCols)
		}
	}
}

func TestDialectsShipSameMigrationNames(t *testing.T) {
	names := func(dialect string) string {
		entries, err := fs.ReadDir(FS, dialect)
		if err != nil {
			t.Fatalf("read %s: %v", dialect, err)
		}
		var out []string
		for _, e := range entries {
			out = append(out, e.Name())
		}
		return strings.Join(out, ",")
	}

	if pg, lite := names("postgres"), names("sqlite"); pg != lite {
		t.Fatalf("migration files differ: postgres [%s] sqlite [%s]", pg, lite)
	}
}
