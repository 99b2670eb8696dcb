package socks5

// state names the position of a single SOCKS5 dialog in the client-side
// negotiation machine:
//
//	GREETING_SEND → GREETING_RECV → (AUTH_SEND → AUTH_RECV)? → REQUEST_SEND → REPLY_RECV → DONE
//	                       ↓                 ↓                                    ↓
//	                     FAIL              FAIL                                 FAIL
//
// No state is reentrant and a session never outlives a single
// ConnectThroughProxy call, so this exists mainly to label log lines, not to
// drive control flow (client.go's linear sequence of steps already is
// the state machine).
type state int

const (
	stateGreetingSend state = iota
	stateGreetingRecv
	stateAuthSend
	stateAuthRecv
	stateRequestSend
	stateReplyRecv
	stateDone
	stateFail
)

func (s state) String() string {
	switch s {
	case stateGreetingSend:
		return "GREETING_SEND"
	case stateGreetingRecv:
		return "GREETING_RECV"
	case stateAuthSend:
		return "AUTH_SEND"
	case stateAuthRecv:
		return "AUTH_RECV"
	case stateRequestSend:
		return "REQUEST_SEND"
	case stateReplyRecv:
		return "REPLY_RECV"
	case stateDone:
		return "DONE"
	case stateFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}
