// Package queries loads named SQL templates from a plain-text file.
//
// A line containing `-- QUERY: NAME` opens a block named NAME. Following lines
// are trimmed and space-joined until the block is committed by a trailing
// semicolon, a blank line, a comment line, the next marker, or end of input.
package queries

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const marker = "-- QUERY:"

// ErrTemplateNotFound reports a lookup for a query name absent from the file.
var ErrTemplateNotFound = errors.New("query template not found")

// Registry maps query names to SQL text. Immutable after Load.
type Registry struct {
	queries map[string]string
}

// Load reads and parses the template file. An unreadable file is a hard error;
// the caller must not continue with an empty registry.
func Load(path string) (Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return Registry{}, fmt.Errorf("queries: open %s: %w", path, err)
	}
	defer f.Close()

	return parse(f), nil
}

func parse(r io.Reader) Registry {
	reg := Registry{queries: make(map[string]string)}

	var (
		name  string
		parts []string
		open  bool
	)

	commit := func() {
		if text := strings.TrimSpace(strings.Join(parts, " ")); name != "" && text != "" {
			reg.queries[name] = text
		}
		name = ""
		parts = nil
		open = false
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		if idx := strings.Index(line, marker); idx >= 0 {
			if open {
				commit()
			}
			rest := strings.TrimLeft(line[idx+len(marker):], " ")
			name, _, _ = strings.Cut(rest, " ")
			parts = nil
			open = true
			continue
		}

		if !open {
			continue
		}

		trimmed := strings.TrimSpace(line)
		isComment := strings.HasPrefix(trimmed, "--")

		if trimmed == "" || isComment {
			if len(parts) > 0 {
				commit()
			}
			continue
		}

		parts = append(parts, trimmed)
		if strings.HasSuffix(trimmed, ";") {
			commit()
		}
	}

	if open {
		commit()
	}

	return reg
}

// Get returns the SQL for a query name, by exact match.
func (r Registry) Get(name string) (string, error) {
	q, ok := r.queries[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	return q, nil
}

// Len reports the number of loaded templates.
func (r Registry) Len() int {
	return len(r.queries)
}
