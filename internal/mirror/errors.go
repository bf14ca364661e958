package mirror

import "errors"

// ErrStoreUnavailable is returned when the store file does not exist yet.
// It is the only condition that prevents monitoring from starting.
var ErrStoreUnavailable = errors.New("store unavailable")

// ErrAlreadyRunning is returned by Start when the scheduler is already active.
var ErrAlreadyRunning = errors.New("scheduler already running")
