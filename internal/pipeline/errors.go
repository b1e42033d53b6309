package pipeline

import "fmt"

// ConfigError means the run was started with unusable configuration. It is
// never retried.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// TransientError wraps a provider failure that may succeed on retry with the
// same inputs. Stage names where it happened.
type TransientError struct {
	Stage string
	Err   error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("stage %s: transient: %v", e.Stage, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// FatalError halts the run. Stage names the stage that failed so status
// reporting can say where the pipeline stopped.
type FatalError struct {
	Stage string
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }
