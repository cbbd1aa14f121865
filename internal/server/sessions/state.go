package sessions

// State of a vendor session handle.
//
//	Unauthenticated --RequestCode--> CodeRequested --RequestToken--> Authenticated
//	Authenticated   --RequestCode--> CodeRequested
type State int

const (
	StateUnauthenticated State = iota
	StateCodeRequested
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateCodeRequested:
		return "code_requested"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}
