package schema

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

// Record types are declared in CUE under the top-level "record" struct:
//
//	record: Post: {
//		source: "posts"
//		fields: {
//			id:     {type: "id", primary_key: true}
//			title:  {type: "string"}
//			views:  {type: "int"}
//		}
//	}
//
// Field order is declaration order; it determines the column order of
// whole-record projections.

// CompileError reports a schema declaration that could not be compiled,
// with the CUE source position when available.
type CompileError struct {
	Record  string
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	where := e.Record
	if e.Field != "" {
		where = where + "." + e.Field
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), where, e.Message)
	}
	return fmt.Sprintf("%s: %s", where, e.Message)
}

// LoadDir loads all CUE files in dir and compiles every declared record
// type into a Catalog. Uses the CUE SDK's Go API directly (not a CLI
// subprocess).
func LoadDir(dir string) (*Catalog, error) {
	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("building CUE value: %w", err)
	}
	return CompileCatalog(value)
}

// CompileString compiles record types from a CUE source string.
// Intended for tests and embedded schemas.
func CompileString(src string) (*Catalog, error) {
	ctx := cuecontext.New()
	value := ctx.CompileString(src)
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("compiling CUE source: %w", err)
	}
	return CompileCatalog(value)
}

// CompileCatalog extracts every record type declared under "record" in
// the given CUE value.
func CompileCatalog(v cue.Value) (*Catalog, error) {
	catalog := &Catalog{Types: make(map[string]*RecordType)}

	recordsVal := v.LookupPath(cue.ParsePath("record"))
	if !recordsVal.Exists() {
		return nil, &CompileError{Message: "no record types declared (expected top-level \"record\" struct)"}
	}

	iter, err := recordsVal.Fields()
	if err != nil {
		return nil, fmt.Errorf("iterating record types: %w", err)
	}
	for iter.Next() {
		rt, err := CompileRecordType(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		catalog.Types[rt.Name] = rt
	}
	if len(catalog.Types) == 0 {
		return nil, &CompileError{Message: "record struct declares no types"}
	}
	return catalog, nil
}

// CompileRecordType parses one CUE record declaration into a RecordType.
func CompileRecordType(name string, v cue.Value) (*RecordType, error) {
	if err := v.Err(); err != nil {
		return nil, &CompileError{Record: name, Message: err.Error(), Pos: v.Pos()}
	}

	sourceVal := v.LookupPath(cue.ParsePath("source"))
	if !sourceVal.Exists() {
		return nil, &CompileError{Record: name, Field: "source", Message: "source is required", Pos: v.Pos()}
	}
	source, err := sourceVal.String()
	if err != nil {
		return nil, &CompileError{Record: name, Field: "source", Message: err.Error(), Pos: sourceVal.Pos()}
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, &CompileError{Record: name, Field: "fields", Message: "fields is required", Pos: v.Pos()}
	}
	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, &CompileError{Record: name, Field: "fields", Message: err.Error(), Pos: fieldsVal.Pos()}
	}

	var fields []Field
	for iter.Next() {
		f, err := compileField(name, iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}

	rt, err := NewRecordType(name, source, fields)
	if err != nil {
		return nil, &CompileError{Record: name, Message: err.Error(), Pos: v.Pos()}
	}
	return rt, nil
}

func compileField(record, name string, v cue.Value) (Field, error) {
	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return Field{}, &CompileError{Record: record, Field: name, Message: "type is required", Pos: v.Pos()}
	}
	typeStr, err := typeVal.String()
	if err != nil {
		return Field{}, &CompileError{Record: record, Field: name, Message: err.Error(), Pos: typeVal.Pos()}
	}
	ft := FieldType(typeStr)
	if !validFieldTypes[ft] {
		return Field{}, &CompileError{Record: record, Field: name, Message: fmt.Sprintf("unknown field type %q", typeStr), Pos: typeVal.Pos()}
	}

	f := Field{Name: name, Type: ft}

	pkVal := v.LookupPath(cue.ParsePath("primary_key"))
	if pkVal.Exists() {
		pk, err := pkVal.Bool()
		if err != nil {
			return Field{}, &CompileError{Record: record, Field: name, Message: err.Error(), Pos: pkVal.Pos()}
		}
		f.PrimaryKey = pk
	}
	return f, nil
}
