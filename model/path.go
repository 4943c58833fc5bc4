package model

import "strings"

// PathSeparator separates relation names in nested selectors, "parent->parent".
const PathSeparator = "->"

// SplitPath splits a relation selector into its relation names.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	parts := strings.Split(path, PathSeparator)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// JoinPath appends name to a relation path.
func JoinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + PathSeparator + name
}

// SetPath stores value on the relation at path below m. Intermediate hops
// must already be loaded; when one is missing or nil nothing is stored and
// false is returned.
func SetPath(m Model, path string, value any) bool {
	names := SplitPath(path)
	if len(names) == 0 {
		return false
	}
	owner := m
	for _, name := range names[:len(names)-1] {
		v, _ := owner.Related(name)
		next, ok := v.(Model)
		if !ok || next == nil {
			return false
		}
		owner = next
	}
	owner.SetRelated(names[len(names)-1], value)
	return true
}

// Navigate returns the models found at path below each of ms, flattening
// to-many relations. An empty path returns ms unchanged.
func Navigate(ms []Model, path string) []Model {
	for _, name := range SplitPath(path) {
		var next []Model
		for _, m := range ms {
			v, _ := m.Related(name)
			switch v := v.(type) {
			case Model:
				if v != nil {
					next = append(next, v)
				}
			case []Model:
				next = append(next, v...)
			}
		}
		ms = next
	}
	return ms
}
