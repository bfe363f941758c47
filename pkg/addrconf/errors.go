package addrconf

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownInterface = errors.New("unknown interface")
	ErrInvalidLease     = errors.New("invalid lease")
)

// UpdateError reports the targets that could not be configured during one
// arbitration pass. The other targets were still processed.
type UpdateError struct {
	Source Source
	Failed TargetSet
	errs   [numTargets]error
}

func (e *UpdateError) add(t Target, err error) {
	e.Failed = e.Failed.Add(t)
	if e.errs[t] == nil {
		e.errs[t] = err
	} else {
		e.errs[t] = errors.Join(e.errs[t], err)
	}
}

// Cause returns the failure recorded for t, if any.
func (e *UpdateError) Cause(t Target) error {
	if !t.Valid() {
		return nil
	}
	return e.errs[t]
}

func (e *UpdateError) Unwrap() []error {
	var out []error
	for _, t := range e.Failed.Targets() {
		out = append(out, e.errs[t])
	}
	return out
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("update from %s: failed to configure %s: %v", e.Source, e.Failed, errors.Join(e.Unwrap()...))
}

func (e *UpdateError) orNil() error {
	if e.Failed.Empty() {
		return nil
	}
	return e
}
