package registry

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithWindowSize sets the head-movement window capacity.
// Non-positive values keep the default of 10.
func WithWindowSize(size int) Option {
	return func(r *Registry) {
		if size > 0 {
			r.windowSize = size
		}
	}
}
