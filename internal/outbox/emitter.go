package outbox

// DeliveryReport contains information about an outbox record delivery report.
type DeliveryReport struct {
	Record  *Record // record related to the delivery
	Error   error   // error during the delivery if any
	Details string  // more information about the delivery
}

// Emitter defines the contract for emitters of outbox records.
type Emitter interface {
	// Emit sends the information contained in the outbox record to a
	// message broker. The delivery outcome is reported asynchronously on
	// the provided channel, one report per successfully initiated send.
	Emit(*Record, chan *DeliveryReport) error
}
