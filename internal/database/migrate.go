package database

import (
	"context"
	"embed"
	"fmt"
	"strings"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Migrate applies the embedded schema for the pool's driver.  Every
// statement is idempotent (IF NOT EXISTS), so it is safe to run at each
// startup.
func Migrate(ctx context.Context, db *DB) error {
	name := "schema/" + db.Driver + ".sql"
	content, err := schemaFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	for _, stmt := range splitStatements(string(content)) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// splitStatements cuts a schema file on ';' and drops comment-only chunks.
func splitStatements(src string) []string {
	var out []string
	for _, raw := range strings.Split(src, ";") {
		var lines []string
		for _, l := range strings.Split(raw, "\n") {
			if t := strings.TrimSpace(l); t != "" && !strings.HasPrefix(t, "--") {
				lines = append(lines, l)
			}
		}
		if len(lines) > 0 {
			out = append(out, strings.TrimSpace(strings.Join(lines, "\n")))
		}
	}
	return out
}
