// Package apperr defines the error taxonomy shared by the registry, the
// query builder, the connection table and the migration queue.
//
// Every error carries a machine-readable Code and a Hint telling the caller
// how to fix the problem. Errors with the same Code match under errors.Is, so
// callers compare against the exported sentinels:
//
//	if errors.Is(err, apperr.ErrSchemaMissing) { ... }
package apperr

import (
	"errors"
	"fmt"
)

// Code identifies an error category.
type Code string

const (
	CodeSchemaExisting       Code = "schema_existing"
	CodeSchemaMissing        Code = "schema_missing"
	CodeSchemaConfiguration  Code = "schema_configuration"
	CodeConnectionExisting   Code = "connection_existing"
	CodeConnectionUnknown    Code = "connection_unknown"
	CodeAdapterMissing       Code = "adapter_missing"
	CodeUpdatePayloadMissing Code = "update_payload_missing"
	CodeDocumentMissingID    Code = "document_missing_id"
	CodeRawUnsupported       Code = "raw_unsupported"
	CodeInvalidConfig        Code = "invalid_config"
)

// Error is the concrete error type of the taxonomy.
type Error struct {
	Code    Code
	Message string
	Hint    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrSchemaExisting       = &Error{Code: CodeSchemaExisting}
	ErrSchemaMissing        = &Error{Code: CodeSchemaMissing}
	ErrSchemaConfiguration  = &Error{Code: CodeSchemaConfiguration}
	ErrConnectionExisting   = &Error{Code: CodeConnectionExisting}
	ErrConnectionUnknown    = &Error{Code: CodeConnectionUnknown}
	ErrAdapterMissing       = &Error{Code: CodeAdapterMissing}
	ErrUpdatePayloadMissing = &Error{Code: CodeUpdatePayloadMissing}
	ErrDocumentMissingID    = &Error{Code: CodeDocumentMissingID}
	ErrRawUnsupported       = &Error{Code: CodeRawUnsupported}
	ErrInvalidConfig        = &Error{Code: CodeInvalidConfig}
)

func SchemaExisting(name string) error {
	return &Error{
		Code:    CodeSchemaExisting,
		Message: fmt.Sprintf("schema %q is already registered", name),
		Hint:    "drop the schema first or register it under another name",
	}
}

func SchemaMissing(name string) error {
	return &Error{
		Code:    CodeSchemaMissing,
		Message: fmt.Sprintf("schema %q is not registered", name),
		Hint:    "register it with Create(name)...SetStructure(...) before use",
	}
}

func SchemaConfiguration(name, problem string) error {
	return &Error{
		Code:    CodeSchemaConfiguration,
		Message: fmt.Sprintf("schema %q: %s", name, problem),
		Hint:    "call Use(connection, collection) before SetStructure",
	}
}

func ConnectionExisting(name string) error {
	return &Error{
		Code:    CodeConnectionExisting,
		Message: fmt.Sprintf("connection %q is already attached", name),
		Hint:    "detach the existing connection or pick another name",
	}
}

func ConnectionUnknown(name string) error {
	return &Error{
		Code:    CodeConnectionUnknown,
		Message: fmt.Sprintf("connection %q is not defined", name),
		Hint:    "add it to the connections section of the config",
	}
}

func AdapterMissing(connection string) error {
	return &Error{
		Code:    CodeAdapterMissing,
		Message: fmt.Sprintf("no adapter attached to connection %q", connection),
		Hint:    "attach an adapter to the connection before querying it",
	}
}

func UpdatePayloadMissing(schema string) error {
	return &Error{
		Code:    CodeUpdatePayloadMissing,
		Message: fmt.Sprintf("update on %q has no payload", schema),
		Hint:    "pass data to Update or call To/Set first",
	}
}

func DocumentMissingID(collection string) error {
	return &Error{
		Code:    CodeDocumentMissingID,
		Message: fmt.Sprintf("document fetched from %q has no id field", collection),
		Hint:    "make sure the backend returns an id column for this collection",
	}
}

func RawUnsupported(backend string) error {
	return &Error{
		Code:    CodeRawUnsupported,
		Message: fmt.Sprintf("%s adapter does not support raw statements", backend),
		Hint:    "run migrations against a SQL connection",
	}
}

func InvalidConfig(problem string) error {
	return &Error{
		Code:    CodeInvalidConfig,
		Message: problem,
		Hint:    "fix the configuration file or environment",
	}
}

// CodeOf returns the taxonomy code of err, or "" if err is not part of it.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HintOf returns the remediation hint of err, if any.
func HintOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Hint
	}
	return ""
}
