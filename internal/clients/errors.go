package clients

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnauthorized = errors.New("backend rejected credentials")
	ErrNotFound     = errors.New("resource not found")
	ErrUnavailable  = errors.New("backend temporarily unavailable")
)

const maxErrorMessage = 200

// APIError is a non-2xx backend response.
type APIError struct {
	Service string
	Status  int
	Msg     string
}

func (e *APIError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s returned status %d", e.Service, e.Status)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.Status, e.Msg)
}

// Message is the backend's own explanation, if it sent one.
func (e *APIError) Message() string {
	return e.Msg
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == 401 || e.Status == 403
	case ErrNotFound:
		return e.Status == 404
	case ErrUnavailable:
		return e.Status >= 500
	}
	return false
}

// newAPIError extracts a message from {"error": ...}, {"message": ...} or a plain body.
func newAPIError(service string, status int, body []byte) *APIError {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Mensaje string `json:"mensaje"`
	}
	msg := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Error != "":
			msg = payload.Error
		case payload.Message != "":
			msg = payload.Message
		case payload.Mensaje != "":
			msg = payload.Mensaje
		}
	} else {
		msg = strings.TrimSpace(string(body))
	}
	if len(msg) > maxErrorMessage {
		msg = msg[:maxErrorMessage]
	}
	return &APIError{Service: service, Status: status, Msg: msg}
}
