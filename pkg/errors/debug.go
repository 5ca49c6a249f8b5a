package errors

import (
	"errors"
	"fmt"
)

type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	RemoteStatus int `json:"remote_status,omitempty"`
}

// RemoteStatusCarrier is implemented by errors that remember the HTTP status the
// remote cart service replied with.
type RemoteStatusCarrier interface {
	RemoteStatus() int
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
	}

	if te := As(err); te != nil {
		d.Code = te.Code()
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var carrier RemoteStatusCarrier
	if errors.As(err, &carrier) {
		d.RemoteStatus = carrier.RemoteStatus()
	}

	return d
}
