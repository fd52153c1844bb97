// Package config reads and rewrites the flat key=value property files used by
// the managed deployment: the application's stack.properties and the per-host
// environment file. Keys are case-sensitive and file order is preserved across
// rewrites; missing keys are tolerated on lookup and an error only when the
// caller requires the key.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// KeyError reports a property that is required but absent.
type KeyError struct {
	Key  string
	Path string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("cannot find property %q in %s, please set it first", e.Key, e.Path)
}

// KV is one key=value pair in file order.
type KV struct {
	Key   string
	Value string
}

// line is one raw line of the file. Key is empty for comments and blanks.
type line struct {
	raw string
	key string
}

// WriteScope runs fn with whatever identity the file must be written under.
// The default scope runs fn directly.
type WriteScope func(fn func() error) error

// PropertyFile is an order-preserving view of a key=value property file.
// Comments and blank lines survive rewrites untouched.
type PropertyFile struct {
	path  string
	lines []line
	vals  map[string]string
	scope WriteScope
}

// Load parses the property file at path. A missing file is an error because
// every caller operates on an installed deployment.
func Load(path string) (*PropertyFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot find property file at %s: %w", path, err)
	}
	p := &PropertyFile{
		path:  path,
		vals:  make(map[string]string),
		scope: func(fn func() error) error { return fn() },
	}
	for _, raw := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "!") {
			p.lines = append(p.lines, line{raw: raw})
			continue
		}
		k, v, ok := strings.Cut(trimmed, "=")
		if !ok {
			// not a key=value line; keep verbatim
			p.lines = append(p.lines, line{raw: raw})
			continue
		}
		key := strings.TrimSpace(k)
		p.lines = append(p.lines, line{raw: raw, key: key})
		p.vals[key] = strings.TrimSpace(v)
	}
	return p, nil
}

// Path returns the backing file path.
func (p *PropertyFile) Path() string { return p.path }

// SetWriteScope installs the identity scope used by Write.
func (p *PropertyFile) SetWriteScope(scope WriteScope) {
	if scope != nil {
		p.scope = scope
	}
}

// Lookup returns the value for key and whether it is present.
func (p *PropertyFile) Lookup(key string) (string, bool) {
	v, ok := p.vals[key]
	return v, ok
}

// Require returns the value for key, or a KeyError naming key and file.
func (p *PropertyFile) Require(key string) (string, error) {
	v, ok := p.vals[key]
	if !ok {
		return "", &KeyError{Key: key, Path: p.path}
	}
	return v, nil
}

// LookupPrefix returns, in file order, every pair whose key starts with prefix.
func (p *PropertyFile) LookupPrefix(prefix string) []KV {
	var out []KV
	for _, l := range p.lines {
		if l.key != "" && strings.HasPrefix(l.key, prefix) {
			out = append(out, KV{Key: l.key, Value: p.vals[l.key]})
		}
	}
	return out
}

// All returns every pair in file order.
func (p *PropertyFile) All() []KV {
	var out []KV
	for _, l := range p.lines {
		if l.key != "" {
			out = append(out, KV{Key: l.key, Value: p.vals[l.key]})
		}
	}
	return out
}

// Set updates key in place, appending it when absent.
func (p *PropertyFile) Set(key, value string) {
	if _, ok := p.vals[key]; ok {
		for i := range p.lines {
			if p.lines[i].key == key {
				p.lines[i].raw = key + " = " + value
			}
		}
	} else {
		p.lines = append(p.lines, line{raw: key + " = " + value, key: key})
	}
	p.vals[key] = value
}

// SetAll applies pairs in order via Set.
func (p *PropertyFile) SetAll(pairs []KV) {
	for _, kv := range pairs {
		p.Set(kv.Key, kv.Value)
	}
}

// Delete removes keys that are present; absent keys are ignored.
func (p *PropertyFile) Delete(keys ...string) {
	for _, key := range keys {
		if _, ok := p.vals[key]; !ok {
			continue
		}
		delete(p.vals, key)
		kept := p.lines[:0]
		for _, l := range p.lines {
			if l.key != key {
				kept = append(kept, l)
			}
		}
		p.lines = kept
	}
}

// Write rewrites the whole file under the configured write scope.
func (p *PropertyFile) Write() error {
	var b strings.Builder
	for _, l := range p.lines {
		b.WriteString(l.raw)
		b.WriteByte('\n')
	}
	return p.scope(func() error {
		if err := os.WriteFile(p.path, []byte(b.String()), 0o644); err != nil {
			return fmt.Errorf("errors on writing %s: %w", p.path, err)
		}
		return nil
	})
}

// Create writes an empty property file at path unless one already exists.
func Create(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, nil, 0o644)
}
