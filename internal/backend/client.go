package backend

// Client is the realtime session backend the session layer is written against.
//
// Every method returns immediately. A non-nil error means the call was rejected locally and
// nothing was sent; the outcome of an accepted call arrives later as an Event on Events().
type Client interface {
	Connect(ConnectSettings) error
	Disconnect() error

	JoinRandomRoom(filter Properties, maxPlayers uint8) error
	CreateRoom(name string, opts RoomOptions) error
	JoinOrCreateRoom(name string, opts RoomOptions) error
	LeaveRoom() error

	SetLocalPlayerProperties(Properties) error
	SetNickName(string)

	State() ClientState
	IsConnectedAndReady() bool
	InRoom() bool
	RoomName() string

	Events() <-chan Event
}

// ConnectSettings carries the app configuration applied before every connect.
type ConnectSettings struct {
	AppID      string
	VoiceAppID string
	Region     string

	// Auth is nil for anonymous connections.
	Auth *AuthValues
}

// AuthValues are forwarded to the backend's custom authentication channel.
type AuthValues struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

// ClientState is the backend's own view of where the client is.
type ClientState int

const (
	ClientDisconnected ClientState = iota
	ClientConnectingToMaster
	ClientConnectedToMaster
	ClientJoining
	ClientJoined
	ClientLeaving
	ClientDisconnecting
)

func (s ClientState) String() string {
	switch s {
	case ClientDisconnected:
		return "disconnected"
	case ClientConnectingToMaster:
		return "connecting-to-master"
	case ClientConnectedToMaster:
		return "connected-to-master"
	case ClientJoining:
		return "joining"
	case ClientJoined:
		return "joined"
	case ClientLeaving:
		return "leaving"
	case ClientDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}
