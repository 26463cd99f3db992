package domain

import (
	"errors"
	"sort"
	"strings"
)

// Errores de dominio (sin dependencias externas). Cada *Error envuelve uno de estos
// tipos, así que los llamadores clasifican con errors.Is.
var (
	ErrNotFound            = errors.New("recurso no encontrado")
	ErrValidation          = errors.New("entrada inválida")
	ErrInvalidState        = errors.New("operación no permitida en el estado actual")
	ErrInvalidTransition   = errors.New("transición de estado no permitida")
	ErrForbidden           = errors.New("acceso denegado")
	ErrUnauthorized        = errors.New("no autorizado")
	ErrConcurrencyConflict = errors.New("el recurso fue modificado por otra operación")
)

// Error es un error de dominio estructurado: tipo + mensaje + identificadores relevantes.
type Error struct {
	Kind    error
	Message string
	Fields  map[string]string
}

// NewError construye un error del tipo indicado.
func NewError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// With agrega un identificador (solicitud_id, material, status...) al error.
func (e *Error) With(key, value string) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[key] = value
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k + "=" + e.Fields[k])
		}
		b.WriteString(")")
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Kind }

// Validation, NotFound, Forbidden... atajos para los tipos más usados.
func Validation(message string) *Error { return NewError(ErrValidation, message) }
func NotFound(message string) *Error   { return NewError(ErrNotFound, message) }
func Forbidden(message string) *Error  { return NewError(ErrForbidden, message) }
func InvalidState(message string) *Error {
	return NewError(ErrInvalidState, message)
}
func InvalidTransition(message string) *Error {
	return NewError(ErrInvalidTransition, message)
}
func ConcurrencyConflict(message string) *Error {
	return NewError(ErrConcurrencyConflict, message)
}

// FieldsOf devuelve los identificadores de un error de dominio (nil si no es *Error).
func FieldsOf(err error) map[string]string {
	var de *Error
	if errors.As(err, &de) {
		return de.Fields
	}
	return nil
}
