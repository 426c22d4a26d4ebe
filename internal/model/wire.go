package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// JobStatus is the lifecycle state of a batch job as reported by the
// service's status endpoint.
type JobStatus string

const (
	JobNotStarted JobStatus = "NotStarted"
	JobRunning    JobStatus = "Running"
	JobFailed     JobStatus = "Failed"
	JobCancelled  JobStatus = "Cancelled"
	JobFinished   JobStatus = "Finished"
)

// ParseJobStatus maps a StatusCode field to a JobStatus. The service sends
// either the numeric code ("0".."4") or the state name.
func ParseJobStatus(code string) (JobStatus, error) {
	switch code {
	case "0", string(JobNotStarted):
		return JobNotStarted, nil
	case "1", string(JobRunning):
		return JobRunning, nil
	case "2", string(JobFailed):
		return JobFailed, nil
	case "3", string(JobCancelled):
		return JobCancelled, nil
	case "4", string(JobFinished):
		return JobFinished, nil
	}
	return "", fmt.Errorf("unknown job status code: %q", code)
}

// Terminal reports whether no further polling is useful.
func (s JobStatus) Terminal() bool {
	return s == JobFailed || s == JobCancelled || s == JobFinished
}

// StatusCode accepts both a JSON string and a JSON number, since services
// have been observed to send either.
type StatusCode string

// UnmarshalJSON implements json.Unmarshaler.
func (s *StatusCode) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	if strings.HasPrefix(trimmed, `"`) {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = StatusCode(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = StatusCode(n.String())
	return nil
}

// BlobRef locates a staged table on the blob storage, in the wire shape
// the batch endpoint expects.
type BlobRef struct {
	ConnectionString string `json:"ConnectionString"`
	RelativeLocation string `json:"RelativeLocation"`
	SasURI           string `json:"SasBlobUri,omitempty"`
}

// Container returns the container part of the relative location.
func (r BlobRef) Container() string {
	if i := strings.IndexByte(r.RelativeLocation, '/'); i >= 0 {
		return r.RelativeLocation[:i]
	}
	return r.RelativeLocation
}

// Key returns the blob path inside the container.
func (r BlobRef) Key() string {
	if i := strings.IndexByte(r.RelativeLocation, '/'); i >= 0 {
		return r.RelativeLocation[i+1:]
	}
	return ""
}

// Diagnostic is one service-reported error detail entry.
type Diagnostic struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Target  string `json:"target,omitempty"`
}

// ErrorEnvelope is the structured error body returned on non-2xx
// responses.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the main code/message plus detail entries.
type ErrorBody struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []Diagnostic `json:"details,omitempty"`
}

// BatchRequest is the job submission payload: staged inputs, scalar
// parameters and pre-allocated output locations.
type BatchRequest struct {
	Inputs           map[string]BlobRef `json:"Inputs"`
	GlobalParameters map[string]string  `json:"GlobalParameters"`
	Outputs          map[string]BlobRef `json:"Outputs"`
}

// JobStatusResponse is the body returned by the job status endpoint.
type JobStatusResponse struct {
	StatusCode StatusCode         `json:"StatusCode"`
	Details    string             `json:"Details,omitempty"`
	Results    map[string]BlobRef `json:"Results,omitempty"`
}
