package lobby

type ServiceOpt func(*Service)

// WithReady delays connecting until ready is closed, e.g. by an embedded broker.
func WithReady(ready <-chan struct{}) ServiceOpt {
	return func(s *Service) {
		s.ready = ready
	}
}
