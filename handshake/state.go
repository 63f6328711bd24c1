package handshake

import "fmt"

// State of one side of a handshake.
type State uint8

// Initiator states.
const (
	Idle State = iota
	AwaitingWakeupAck
	Sending
	AwaitingIntegrityAck
	ClosingClean
)

// Responder states.
const (
	AwaitingWakeup State = iota + 16
	Acking
	ReceivingPayload
	AckingIntegrity
	AwaitingFarewell
	Delivered
)

// Rejected is the terminal state of both sides when the initiator refuses the
// integrity acknowledgement.
const Rejected State = 255

// String implements the fmt.Stringer interface.
func (state State) String() string {
	switch state {
	case Idle:
		return "idle"
	case AwaitingWakeupAck:
		return "awaiting-wakeup-ack"
	case Sending:
		return "sending"
	case AwaitingIntegrityAck:
		return "awaiting-integrity-ack"
	case ClosingClean:
		return "closing-clean"
	case AwaitingWakeup:
		return "awaiting-wakeup"
	case Acking:
		return "acking"
	case ReceivingPayload:
		return "receiving-payload"
	case AckingIntegrity:
		return "acking-integrity"
	case AwaitingFarewell:
		return "awaiting-farewell"
	case Delivered:
		return "delivered"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("state(%d)", uint8(state))
	}
}

// Terminal returns true if no further transition is possible from the State.
func (state State) Terminal() bool {
	return state == ClosingClean || state == Delivered || state == Rejected
}
