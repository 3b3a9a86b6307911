package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"seafood-agent/internal/domain"
)

type ErrorCode string

const (
	ErrorNotFound     ErrorCode = "NOT_FOUND"
	ErrorInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorConflict     ErrorCode = "CONFLICT"
	ErrorUpstream     ErrorCode = "UPSTREAM_ERROR"
	ErrorNotConnected ErrorCode = "NOT_CONNECTED"
	ErrorInternal     ErrorCode = "INTERNAL_ERROR"
)

// ReasonMalformedBody marks a webhook payload that could not be decoded.
const ReasonMalformedBody = "malformed_body"

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// codeOf maps a handler failure onto the coded taxonomy.
func codeOf(err error) ErrorCode {
	var ue *Error
	var sc httpStatusCoder
	switch {
	case errors.As(err, &ue):
		return ue.Code
	case errors.Is(err, domain.ErrNotConnected):
		return ErrorNotConnected
	case errors.Is(err, domain.ErrNotFound):
		return ErrorNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return ErrorInvalidInput
	case errors.Is(err, domain.ErrConflict):
		return ErrorConflict
	case errors.As(err, &sc), errors.Is(err, context.DeadlineExceeded):
		return ErrorUpstream
	default:
		return ErrorInternal
	}
}

// RenderError turns any failure into the short reply shown to the operator.
func RenderError(err error) string {
	switch codeOf(err) {
	case ErrorNotConnected:
		return "🔌 No hay conexión con la base de datos. Intenta de nuevo en unos minutos."
	case ErrorNotFound:
		var nf *domain.NotFoundError
		if errors.As(err, &nf) && nf.Entity == "tasa" {
			return "💱 No hay tasa de cambio configurada. Escribe por ejemplo \"tasa 36.5\" para fijarla."
		}
		if errors.As(err, &nf) {
			msg := fmt.Sprintf("🔍 No encontré %s \"%s\".", article(nf.Entity), nf.Query)
			if len(nf.Suggestions) > 0 {
				msg += " ¿Quisiste decir: " + strings.Join(nf.Suggestions, ", ") + "?"
			}
			return msg
		}
		return "🔍 No encontré lo que buscas."
	case ErrorInvalidInput:
		var ue *Error
		if errors.As(err, &ue) && ue.Reason == "message_too_long" {
			return "⚠️ El mensaje es demasiado largo."
		}
		if errors.As(err, &ue) && ue.Reason == "empty_message" {
			return "⚠️ El mensaje está vacío."
		}
		if errors.As(err, &ue) && ue.Reason == ReasonMalformedBody {
			return "⚠️ No pude leer el mensaje recibido."
		}
		return "⚠️ " + detail(err, domain.ErrInvalidInput)
	case ErrorConflict:
		return "⚠️ " + detail(err, domain.ErrConflict)
	case ErrorUpstream:
		return "😕 El servicio de interpretación no está disponible. Intenta de nuevo en un momento."
	default:
		return "😕 Ocurrió un error inesperado. No se guardó ningún cambio adicional."
	}
}

// detail extracts the operator-facing text that follows a domain sentinel in
// a wrapped error chain.
func detail(err error, sentinel error) string {
	msg := err.Error()
	marker := sentinel.Error() + ": "
	if i := strings.LastIndex(msg, marker); i >= 0 {
		return capitalize(msg[i+len(marker):])
	}
	return "No se pudo completar la operación."
}

func article(entity string) string {
	return "el " + entity
}

func capitalize(s string) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) == 0 {
		return s
	}
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
