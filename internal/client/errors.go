package client

import "fmt"

// ConfigError reports a call that cannot be dispatched as configured:
// an unknown service, a missing endpoint entry, a missing local
// implementation, or a remote-only service selected in local mode.
type ConfigError struct {
	Service string
	Msg     string
}

func (e *ConfigError) Error() string {
	if e.Service == "" {
		return fmt.Sprintf("configuration error: %s", e.Msg)
	}
	return fmt.Sprintf("configuration error for service %s: %s", e.Service, e.Msg)
}
