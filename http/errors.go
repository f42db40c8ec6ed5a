package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/sagarc03/ipgate"
	"github.com/sagarc03/ipgate/deadline"
)

type errorClass struct {
	status int
	code   string
}

var errorClasses = []struct {
	err   error
	class errorClass
}{
	{ipgate.ErrBadRequest, errorClass{http.StatusBadRequest, "bad_request"}},
	{ipgate.ErrNotFound, errorClass{http.StatusNotFound, "not_found"}},
	{ipgate.ErrMethodNotAllowed, errorClass{http.StatusMethodNotAllowed, "method_not_allowed"}},
	{ipgate.ErrPreconditionFailed, errorClass{http.StatusPreconditionFailed, "precondition_failed"}},
	{ipgate.ErrRangeNotSatisfiable, errorClass{http.StatusRequestedRangeNotSatisfiable, "range_not_satisfiable"}},
	{ipgate.ErrNotImplemented, errorClass{http.StatusNotImplemented, "not_implemented"}},
	{deadline.ErrTimeout, errorClass{http.StatusInternalServerError, "timeout"}},
}

func classify(err error) errorClass {
	for _, c := range errorClasses {
		if errors.Is(err, c.err) {
			return c.class
		}
	}
	return errorClass{http.StatusInternalServerError, "internal_error"}
}

// withCause attaches the cancellation cause of ctx to err, so a fired
// deadline is reported as a timeout rather than a bare context.Canceled.
func withCause(ctx context.Context, err error) error {
	cause := context.Cause(ctx)
	if cause == nil || errors.Is(err, cause) {
		return err
	}
	return errors.Join(err, cause)
}
