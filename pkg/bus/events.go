package bus

type EventId uint8

const (
	ObservationEvent EventId = iota
	DirectiveEvent
	SelectionEvent
	FillEvent
	EquityEvent
)

func (id EventId) String() string {
	switch id {
	case ObservationEvent:
		return "observation"
	case DirectiveEvent:
		return "directive"
	case SelectionEvent:
		return "selection"
	case FillEvent:
		return "fill"
	case EquityEvent:
		return "equity"
	default:
		return "unknown"
	}
}
