package generate

import "errors"

var (
	// ErrUnitNotFound is returned when a regeneration or save targets a
	// unit name the document does not contain.
	ErrUnitNotFound = errors.New("unit not found in document")

	// ErrMalformedDocument is returned when a whole-document regeneration
	// response cannot be parsed or the rebuilt document violates the
	// document schema. Unlike per-unit regeneration this is a hard
	// failure: the persisted document is left untouched.
	ErrMalformedDocument = errors.New("regenerated document is malformed")
)
