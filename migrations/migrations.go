// Package migrations embeds the Postgres schema.
package migrations

import (
	"embed"
	"io/fs"
	"sort"
)

//go:embed *.sql
var files embed.FS

// Script is one schema file.
type Script struct {
	Name string
	SQL  string
}

// Scripts returns the embedded schema files in lexical order.
func Scripts() ([]Script, error) {
	names, err := fs.Glob(files, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	out := make([]Script, 0, len(names))
	for _, name := range names {
		raw, err := files.ReadFile(name)
		if err != nil {
			return nil, err
		}
		out = append(out, Script{Name: name, SQL: string(raw)})
	}
	return out, nil
}
