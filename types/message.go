package types

// MessageType tags the concrete type of an outbound Message.
type MessageType int8

const (
	// MessageTypeExecution - order state change or trade.
	MessageTypeExecution MessageType = iota
	// MessageTypeQuoteChange - book snapshot or increment.
	MessageTypeQuoteChange
	// MessageTypePositionChange - position / portfolio change set.
	MessageTypePositionChange
	// MessageTypeError - out-of-band failure report.
	MessageTypeError
)

// Message is anything the engines emit through their result sinks.
type Message interface {
	Type() MessageType
}

// ErrorMessage reports a failure that cannot be attached to a reply, such
// as an arithmetic overflow while computing portfolio state.
type ErrorMessage struct {
	OriginalTransactionID int64
	Error                 error
}

// Type implements Message.
func (m *ErrorMessage) Type() MessageType { return MessageTypeError }
