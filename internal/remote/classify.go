package remote

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
)

// MessageNotInCart is surfaced whenever the service no longer knows a line.
const MessageNotInCart = "item not in cart"

// StatusError keeps the raw reply so logs can show what the service said.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("cart service status %d", e.Status)
	}
	return fmt.Sprintf("cart service status %d: %s", e.Status, e.Message)
}

// RemoteStatus exposes the HTTP status for error dumps.
func (e *StatusError) RemoteStatus() int {
	return e.Status
}

func classify(status int, body []byte, lineKeyed bool) error {
	var payload errorResponse
	_ = json.Unmarshal(body, &payload)
	message := strings.TrimSpace(payload.Message)
	cause := &StatusError{Status: status, Message: message}

	switch {
	case status == http.StatusUnauthorized:
		return pkgerrors.Wrap(pkgerrors.CodeUnauthenticated, cause, orDefault(message, "session expired"))
	case status == http.StatusForbidden:
		return pkgerrors.Wrap(pkgerrors.CodeForbidden, cause, orDefault(message, "access denied"))
	case status == http.StatusNotFound && lineKeyed:
		return pkgerrors.Wrap(pkgerrors.CodeStaleReference, cause, MessageNotInCart)
	case status >= http.StatusInternalServerError:
		return pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, cause, "cart service unavailable").
			WithDetails(map[string]any{"status": status})
	}

	typed := pkgerrors.Wrap(pkgerrors.CodeUnclassified, cause, orDefault(message, fmt.Sprintf("cart service returned status %d", status)))
	if len(payload.UnavailableProducts) > 0 {
		typed = typed.WithDetails(map[string]any{"unavailable_products": payload.UnavailableProducts})
	}
	return typed
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
