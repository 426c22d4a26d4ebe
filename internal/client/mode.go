package client

import "time"

// ModeKind selects the execution strategy for a service call.
type ModeKind int

const (
	// ModeRequestResponse runs one synchronous scoring call.
	ModeRequestResponse ModeKind = iota
	// ModeBatch stages blobs and polls an asynchronous job.
	ModeBatch
	// ModeLocal runs the in-process implementation instead of the
	// remote service.
	ModeLocal
)

func (k ModeKind) String() string {
	switch k {
	case ModeRequestResponse:
		return "rr"
	case ModeBatch:
		return "batch"
	case ModeLocal:
		return "local"
	default:
		return "unknown"
	}
}

// CallMode is one entry of the mode stack: the strategy plus its
// per-scope options.
type CallMode struct {
	Kind             ModeKind
	UseSwaggerFormat bool
	// PollInterval applies in batch mode; zero means the default.
	PollInterval time.Duration
}

// RequestResponse builds a synchronous mode.
func RequestResponse(swagger bool) CallMode {
	return CallMode{Kind: ModeRequestResponse, UseSwaggerFormat: swagger}
}

// Batch builds an asynchronous mode polling at the given interval.
func Batch(pollInterval time.Duration) CallMode {
	return CallMode{Kind: ModeBatch, PollInterval: pollInterval}
}

// Local builds an in-process mode.
func Local() CallMode {
	return CallMode{Kind: ModeLocal}
}

// resolveKind is the pure dispatch decision: given the active mode and
// the service metadata, pick a strategy or reject the combination.
func resolveKind(mode CallMode, spec ServiceSpec) (ModeKind, error) {
	if mode.Kind == ModeLocal && spec.RemoteOnly {
		return 0, &ConfigError{Service: spec.Name, Msg: "service is remote-only, local mode is not allowed"}
	}
	return mode.Kind, nil
}
