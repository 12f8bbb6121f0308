package schema

import (
	"bytes"
	"errors"
)

// Document is a raw .iform payload as read from a Store, before parsing.
type Document struct {
	source Source
	raw    []byte
}

// NewDocument copies raw so later writes by the caller cannot change it.
func NewDocument(src Source, raw []byte) (Document, error) {
	if src == nil {
		return Document{}, errors.New("schema: document source is required")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return Document{}, ErrEmptyDocument
	}
	return Document{source: src, raw: bytes.Clone(raw)}, nil
}

func (d Document) Source() Source { return d.source }

// Raw returns a copy of the payload.
func (d Document) Raw() []byte { return bytes.Clone(d.raw) }

// Location names the document in errors and logs.
func (d Document) Location() string {
	if d.source == nil {
		return ""
	}
	return d.source.Location()
}
