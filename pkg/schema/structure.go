package schema

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed iform.cue
var structureSource string

// structure holds the compiled document definition. The CUE runtime is not
// safe for concurrent use, so every check runs under mu.
type structure struct {
	once sync.Once
	mu   sync.Mutex
	ctx  *cue.Context
	form cue.Value
	err  error
}

var documentStructure structure

func (s *structure) init() error {
	s.once.Do(func() {
		s.ctx = cuecontext.New()
		compiled := s.ctx.CompileString(structureSource, cue.Filename("iform.cue"))
		if err := compiled.Err(); err != nil {
			s.err = fmt.Errorf("schema: compile structure: %w", err)
			return
		}
		s.form = compiled.LookupPath(cue.ParsePath("#Form"))
		if err := s.form.Err(); err != nil {
			s.err = fmt.Errorf("schema: lookup #Form: %w", err)
		}
	})
	return s.err
}

// check unifies the JSON payload with #Form and records every conflict or
// missing key as a violation.
func (s *structure) check(payload []byte, vs *violations) error {
	if err := s.init(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.ctx.CompileBytes(payload, cue.Filename("document.json"))
	if err := data.Err(); err != nil {
		vs.add("", "malformed document: %v", err)
		return nil
	}
	unified := s.form.Unify(data)
	err := unified.Validate(cue.Concrete(true), cue.All())
	if err == nil {
		return nil
	}

	type entry struct {
		path   string
		reason string
		count  int
	}
	var order []string
	byPath := make(map[string]*entry)
	for _, e := range cueerrors.Errors(err) {
		path := cuePath(e.Path())
		format, args := e.Msg()
		reason := fmt.Sprintf(format, args...)
		if existing, ok := byPath[path]; ok {
			existing.count++
			continue
		}
		byPath[path] = &entry{path: path, reason: reason, count: 1}
		order = append(order, path)
	}
	for _, path := range order {
		e := byPath[path]
		reason := e.reason
		if e.count > 1 || strings.Contains(reason, "disjunction") {
			reason = "value is not an allowed member"
		}
		vs.add(e.path, "%s", reason)
	}
	return nil
}

// cuePath renders ["sections","0","fields","1","id"] as sections[0].fields[1].id.
func cuePath(parts []string) string {
	var b strings.Builder
	for _, part := range parts {
		if _, err := strconv.Atoi(part); err == nil {
			b.WriteString("[" + part + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}
