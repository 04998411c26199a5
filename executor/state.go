package executor

// State enumerates the executor protocol states.
type State int

const (
	StateAwaitResponse1 State = iota
	StateParseEnvelope1
	StateDispatch1
	StateAwaitResponse2
	StateParseEnvelope2
	StateDispatch2
	StateTerminal
)

var stateNames = [...]string{
	StateAwaitResponse1: "await_response_1",
	StateParseEnvelope1: "parse_envelope_1",
	StateDispatch1:      "dispatch_1",
	StateAwaitResponse2: "await_response_2",
	StateParseEnvelope2: "parse_envelope_2",
	StateDispatch2:      "dispatch_2",
	StateTerminal:       "terminal",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Round returns the protocol round (1 or 2) a state belongs to, or 0 for Terminal.
func (s State) Round() int {
	switch s {
	case StateAwaitResponse1, StateParseEnvelope1, StateDispatch1:
		return 1
	case StateAwaitResponse2, StateParseEnvelope2, StateDispatch2:
		return 2
	default:
		return 0
	}
}
