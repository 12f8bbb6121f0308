package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedVersion is matched by SchemaErrors whose document declares
	// a version this loader does not understand.
	ErrUnsupportedVersion = errors.New("schema: unsupported version")
	// ErrEmptyDocument signals a blank payload.
	ErrEmptyDocument = errors.New("schema: document is empty")
	// ErrNotFound is returned by stores when a named document is missing.
	ErrNotFound = errors.New("schema: document not found")
)

// Violation is a single structural or semantic problem found in a document.
type Violation struct {
	Path   string
	Reason string
}

func (v Violation) String() string {
	if v.Path == "" {
		return v.Reason
	}
	return v.Path + ": " + v.Reason
}

// SchemaError rejects a document wholesale. No definition accompanies it.
type SchemaError struct {
	Location    string
	Violations  []Violation
	unsupported bool
}

func (e *SchemaError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("schema: invalid document")
	if e.Location != "" {
		fmt.Fprintf(&b, " %s", e.Location)
	}
	switch len(e.Violations) {
	case 0:
	case 1:
		b.WriteString(": ")
		b.WriteString(e.Violations[0].String())
	default:
		fmt.Fprintf(&b, ": %d violations: ", len(e.Violations))
		for i, v := range e.Violations {
			if i > 0 {
				b.WriteString("; ")
			}
			b.WriteString(v.String())
		}
	}
	return b.String()
}

// Unwrap lets errors.Is match ErrUnsupportedVersion.
func (e *SchemaError) Unwrap() error {
	if e != nil && e.unsupported {
		return ErrUnsupportedVersion
	}
	return nil
}

// Has reports whether any violation path contains the given fragment.
func (e *SchemaError) Has(pathFragment string) bool {
	if e == nil {
		return false
	}
	for _, v := range e.Violations {
		if strings.Contains(v.Path, pathFragment) {
			return true
		}
	}
	return false
}

type violations struct {
	list        []Violation
	seen        map[string]struct{}
	unsupported bool
}

func (vs *violations) add(path, format string, args ...any) {
	reason := fmt.Sprintf(format, args...)
	key := path + "\x00" + reason
	if vs.seen == nil {
		vs.seen = make(map[string]struct{})
	}
	if _, dup := vs.seen[key]; dup {
		return
	}
	vs.seen[key] = struct{}{}
	vs.list = append(vs.list, Violation{Path: path, Reason: reason})
}

func (vs *violations) err(location string) error {
	if len(vs.list) == 0 {
		return nil
	}
	return &SchemaError{
		Location:    location,
		Violations:  append([]Violation(nil), vs.list...),
		unsupported: vs.unsupported,
	}
}
