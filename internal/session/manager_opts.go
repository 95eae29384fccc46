package session

type ManagerOpt func(*Manager)

// WithRoomCodeSource replaces the random 5-digit fallback room code generator.
func WithRoomCodeSource(fn func() int) ManagerOpt {
	return func(m *Manager) {
		m.roomCode = fn
	}
}
