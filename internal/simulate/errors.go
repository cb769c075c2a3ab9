package simulate

import "errors"

// Sentinel errors for the simulator.
var (
	ErrUnknownScenario = errors.New("unknown scenario")
	ErrUnhealthy       = errors.New("service unhealthy")
	ErrHandshake       = errors.New("unexpected handshake")
	ErrVerification    = errors.New("verification failed")
)
