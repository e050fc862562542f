package schema

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

//go:embed definition.cue
var definitionSrc string

// SchemaError is a problem in a schema document.
type SchemaError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *SchemaError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads a schema from a .cue file or from the CUE package in a
// directory.
func Load(path string) (*Schema, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	cfg := &load.Config{Dir: path}
	args := []string{"."}
	if !info.IsDir() {
		cfg.Dir = filepath.Dir(path)
		args = []string{filepath.Base(path)}
	}

	instances := load.Instances(args, cfg)
	if len(instances) == 0 {
		return nil, fmt.Errorf("load schema: no CUE instances in %s", path)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("load schema: %w", inst.Err)
	}

	ctx := cuecontext.New()
	return fromValue(ctx, ctx.BuildInstance(inst))
}

// LoadString compiles a schema from CUE source.
func LoadString(src string) (*Schema, error) {
	ctx := cuecontext.New()
	return fromValue(ctx, ctx.CompileString(src, cue.Filename("schema.cue")))
}

func fromValue(ctx *cue.Context, v cue.Value) (*Schema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := ctx.CompileString(definitionSrc, cue.Filename("definition.cue"))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("schema definition: %w", err)
	}

	v = v.Unify(def.LookupPath(cue.ParsePath("#Schema")))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	s, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func decode(v cue.Value) (*Schema, error) {
	s := &Schema{Tables: make(map[string]*Table)}

	var err error
	if s.Root, err = v.LookupPath(cue.ParsePath("root")).String(); err != nil {
		return nil, formatCUEError(err)
	}

	iter, err := v.LookupPath(cue.ParsePath("tables")).Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		t, err := decodeTable(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		s.Tables[t.Name] = t
		s.order = append(s.order, t.Name)
	}
	return s, nil
}

func decodeTable(name string, v cue.Value) (*Table, error) {
	t := &Table{Name: name, Relations: make(map[string]Relation)}

	var err error
	if t.PrimaryKey, err = v.LookupPath(cue.ParsePath("primary_key")).String(); err != nil {
		return nil, formatCUEError(err)
	}

	cols, err := v.LookupPath(cue.ParsePath("columns")).List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for cols.Next() {
		col, err := cols.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		t.Columns = append(t.Columns, col)
	}

	rels, err := v.LookupPath(cue.ParsePath("relations")).Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for rels.Next() {
		r := Relation{Name: rels.Label()}
		rv := rels.Value()
		if r.Table, err = rv.LookupPath(cue.ParsePath("table")).String(); err != nil {
			return nil, formatCUEError(err)
		}
		if r.Kind, err = rv.LookupPath(cue.ParsePath("kind")).String(); err != nil {
			return nil, formatCUEError(err)
		}
		r.LocalKey = optionalString(rv, "local_key")
		r.ForeignKey = optionalString(rv, "foreign_key")
		t.Relations[r.Name] = r
	}
	return t, nil
}

func optionalString(v cue.Value, field string) string {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return ""
	}
	s, _ := f.String()
	return s
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &SchemaError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
