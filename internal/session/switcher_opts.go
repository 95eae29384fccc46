package session

type SwitcherOpt func(*Switcher)

// WithPublicQueue matches public switches against queue instead of the Manager's queue.
func WithPublicQueue(queue string) SwitcherOpt {
	return func(s *Switcher) {
		if queue != "" {
			s.queue = queue
		}
	}
}

// WithMaxPlayers overrides the Manager's default room limit for switches.
func WithMaxPlayers(n uint8) SwitcherOpt {
	return func(s *Switcher) {
		s.maxPlayersOverride = n
	}
}
