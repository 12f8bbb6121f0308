package schema

import (
	"path/filepath"
)

// Source identifies where an .iform payload came from so errors and backups
// can name it without knowing how it was read.
type Source interface {
	Kind() SourceKind
	Location() string
}

// SourceKind enumerates where documents are read from.
type SourceKind string

const (
	SourceKindFile   SourceKind = "file"
	SourceKindStore  SourceKind = "store"
	SourceKindInline SourceKind = "inline"
)

type fileSource struct {
	path string
}

func (s fileSource) Location() string { return s.path }
func (s fileSource) Kind() SourceKind { return SourceKindFile }

// SourceFromFile returns a Source pointing at a file path.
func SourceFromFile(path string) Source {
	return fileSource{path: filepath.Clean(path)}
}

type storeSource struct {
	name string
}

func (s storeSource) Location() string { return s.name }
func (s storeSource) Kind() SourceKind { return SourceKindStore }

// SourceFromStore names a document held by a Store.
func SourceFromStore(name string) Source {
	return storeSource{name: name}
}

type inlineSource struct {
	label string
}

func (s inlineSource) Location() string { return s.label }
func (s inlineSource) Kind() SourceKind { return SourceKindInline }

// SourceInline labels a payload supplied directly by the caller, such as an
// HTTP request body.
func SourceInline(label string) Source {
	if label == "" {
		label = "<inline>"
	}
	return inlineSource{label: label}
}
