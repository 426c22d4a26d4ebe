package ws

import (
	"fmt"

	"go-azml-client/internal/model"
)

// TransportError reports a failed HTTP exchange with no structured
// service error: a network failure or a non-2xx with an opaque body.
type TransportError struct {
	Status int
	Body   string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport error: %v", e.Err)
	}
	return fmt.Sprintf("transport error: HTTP %d: %s", e.Status, e.Body)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServiceError reports a non-2xx response carrying the platform's
// structured error envelope.
type ServiceError struct {
	Status  int
	Code    string
	Message string
	Details []model.Diagnostic
}

func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("service error (HTTP %d) %s: %s", e.Status, e.Code, e.Message)
	for _, d := range e.Details {
		msg += fmt.Sprintf("; [%s] %s", d.Code, d.Message)
	}
	return msg
}

// JobExecutionError reports a batch job that reached the Failed state.
type JobExecutionError struct {
	JobID   string
	Status  model.JobStatus
	Details string
}

func (e *JobExecutionError) Error() string {
	return fmt.Sprintf("job %s ended %s: %s", e.JobID, e.Status, e.Details)
}

// JobStateError reports a job observed in a state that ends the run
// without a result, such as Cancelled.
type JobStateError struct {
	JobID  string
	Status model.JobStatus
}

func (e *JobStateError) Error() string {
	return fmt.Sprintf("job %s is in state %s, no results will be produced", e.JobID, e.Status)
}
