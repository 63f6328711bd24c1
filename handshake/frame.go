package handshake

// Control frames exchanged during a handshake. On the wire, every control
// frame is terminated by a newline.
const (
	// FrameWakeup is sent by the initiator to begin a handshake.
	FrameWakeup = "WAKEUP"
	// FrameAck is sent by the responder when it is ready for the payload.
	FrameAck = "ACK"
	// FrameIntegrityAckPrefix is prepended by the responder to the hex digest
	// of the payload it received.
	FrameIntegrityAckPrefix = "ACK-"
	// FrameGoodbye is sent by the initiator to accept the transfer.
	FrameGoodbye = "GOODBYE"
	// FrameErr is sent by the initiator to reject the transfer.
	FrameErr = "ERR"
)
