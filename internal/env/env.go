// Package env loads dotenv files into the process environment.
package env

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Load applies dotenv files in order and returns the ones it read. A variable
// set before Load (by the shell or the process manager) is never overridden;
// between files, later files win, so ".env.local" refines ".env".
func Load(paths ...string) []string {
	preset := map[string]bool{}
	for _, e := range os.Environ() {
		if k, _, ok := strings.Cut(e, "="); ok && k != "" {
			preset[k] = true
		}
	}
	var loaded []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		f, err := os.Open(p)
		if err != nil {
			continue
		}
		vars, err := Parse(f)
		f.Close()
		if err != nil {
			continue
		}
		for k, v := range vars {
			if !preset[k] {
				os.Setenv(k, v)
			}
		}
		loaded = append(loaded, p)
	}
	return loaded
}

// Parse reads KEY=VALUE lines. Blank lines, comments, an "export " prefix and
// malformed lines are skipped; quoted values keep inner "#".
func Parse(r io.Reader) (map[string]string, error) {
	out := map[string]string{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if k, v, ok := parseLine(sc.Text()); ok {
			out[k] = v
		}
	}
	return out, sc.Err()
}

func parseLine(raw string) (key, value string, ok bool) {
	line := strings.TrimSpace(raw)
	if line == "" || line[0] == '#' {
		return "", "", false
	}
	line = strings.TrimPrefix(line, "export ")
	key, value, found := strings.Cut(line, "=")
	key = strings.TrimSpace(key)
	if !found || key == "" || strings.ContainsAny(key, " \t") {
		return "", "", false
	}
	value = strings.TrimSpace(value)
	if n := len(value); n >= 2 && (value[0] == '"' || value[0] == '\'') && value[n-1] == value[0] {
		return key, value[1 : n-1], true
	}
	if cut, _, hasComment := strings.Cut(value, " #"); hasComment {
		value = strings.TrimSpace(cut)
	}
	return key, value, true
}
