// Package migrations embeds the Postgres and ClickHouse schema scripts.
// The store packages apply them; see postgres.Migrate and clickhouse.Migrate.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed postgres/*.sql clickhouse/*.sql
var scripts embed.FS

// Migration is one embedded SQL script. Version is the file name, and
// migrations apply in lexical version order.
type Migration struct {
	Version string
	SQL     string
}

// Postgres returns the Postgres migrations in apply order.
func Postgres() ([]Migration, error) {
	return load("postgres")
}

// ClickHouse returns the ClickHouse migrations in apply order.
func ClickHouse() ([]Migration, error) {
	return load("clickhouse")
}

func load(dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(scripts, dir)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s migrations: %w", dir, err)
	}

	var out []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := fs.ReadFile(scripts, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		out = append(out, Migration{Version: entry.Name(), SQL: string(data)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Statements splits script into individual statements for drivers that
// reject multi-statement queries. Semicolons inside single-quoted strings
// do not split, and "--" comments are dropped.
func Statements(script string) []string {
	var (
		stmts   []string
		current strings.Builder
		inQuote bool
	)

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			stmts = append(stmts, s)
		}
		current.Reset()
	}

	for i := 0; i < len(script); i++ {
		ch := script[i]
		switch {
		case inQuote:
			current.WriteByte(ch)
			switch {
			case ch == '\\' && i+1 < len(script):
				i++
				current.WriteByte(script[i])
			case ch == '\'' && i+1 < len(script) && script[i+1] == '\'':
				i++
				current.WriteByte(script[i])
			case ch == '\'':
				inQuote = false
			}
		case ch == '\'':
			inQuote = true
			current.WriteByte(ch)
		case ch == '-' && i+1 < len(script) && script[i+1] == '-':
			for i < len(script) && script[i] != '\n' {
				i++
			}
			current.WriteByte('\n')
		case ch == ';':
			flush()
		default:
			current.WriteByte(ch)
		}
	}
	flush()

	return stmts
}
