package httpadapter

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// スキーマ名（schemas/ 配下のファイル名）
const (
	SchemaTaskCreate = "task_create.json"
	SchemaTaskUpdate = "task_update.json"
	SchemaTaskList   = "task_list_query.json"
)

// FieldError は 422 レスポンスの detail 要素。
type FieldError struct {
	Loc string `json:"loc"`
	Msg string `json:"msg"`
}

// ValidationError はスキーマ違反をまとめたエラー。
type ValidationError struct {
	Details []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Details[0].Loc, e.Details[0].Msg)
}

func newFieldError(loc, msg string) *ValidationError {
	return &ValidationError{Details: []FieldError{{Loc: loc, Msg: msg}}}
}

// Validator は起動時にコンパイルした JSON Schema で入力を検証する。
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	names := []string{SchemaTaskCreate, SchemaTaskUpdate, SchemaTaskList}
	for _, name := range names {
		raw, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", name, err)
		}
		if err := compiler.AddResource(name, bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
	}

	v := &Validator{schemas: make(map[string]*jsonschema.Schema, len(names))}
	for _, name := range names {
		s, err := compiler.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		v.schemas[name] = s
	}
	return v, nil
}

// ValidateJSON は生の JSON を検証する。loc は detail の先頭に付く（"body" など）。
func (v *Validator) ValidateJSON(schema, loc string, raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return newFieldError(loc, "invalid JSON: "+err.Error())
	}
	if dec.More() {
		return newFieldError(loc, "invalid JSON: trailing data")
	}
	return v.Validate(schema, loc, doc)
}

// Validate はデコード済みの値を検証する。
func (v *Validator) Validate(schema, loc string, doc interface{}) error {
	s, ok := v.schemas[schema]
	if !ok {
		return fmt.Errorf("unknown schema %q", schema)
	}

	err := s.Validate(doc)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return newFieldError(loc, err.Error())
	}

	out := &ValidationError{}
	collectLeaves(ve, loc, out)
	if len(out.Details) == 0 {
		out.Details = append(out.Details, FieldError{Loc: loc, Msg: ve.Message})
	}
	sort.SliceStable(out.Details, func(i, j int) bool {
		return out.Details[i].Loc < out.Details[j].Loc
	})
	return out
}

// 末端の原因だけを拾う
func collectLeaves(e *jsonschema.ValidationError, loc string, out *ValidationError) {
	if len(e.Causes) == 0 {
		out.Details = append(out.Details, FieldError{
			Loc: loc + e.InstanceLocation,
			Msg: e.Message,
		})
		return
	}
	for _, c := range e.Causes {
		collectLeaves(c, loc, out)
	}
}
