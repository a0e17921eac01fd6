package models

import (
	"errors"
	"fmt"
)

// ErrCacheCorrupt marks an unreadable embedding cache. It triggers a
// rebuild, never a startup abort.
var ErrCacheCorrupt = errors.New("embedding cache corrupt")

// ConfigError is a fatal startup misconfiguration (missing credential,
// missing rules file). The operator sees it, the end user never does.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Msg
}

// UpstreamError wraps a failed call to the remote LLM API (network,
// auth, rate limit). Rendered inline in the UI, no retry.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
