package datamodels

// MessageKind is the closed set of Capybot log messages, selected by the
// "msg" field of a log line.
type MessageKind int

const (
	MessageKindUnknown MessageKind = iota
	MessageKindPrice
	MessageKindStrategies
	MessageKindStrategyStatus
	MessageKindOrder
	MessageKindRammPoolState
	MessageKindImbRatios
	// recognized, but no volume series is kept
	MessageKindRammVolumes
)

var messageKindTags = map[string]MessageKind{
	"price":           MessageKindPrice,
	"strategies":      MessageKindStrategies,
	"strategy status": MessageKindStrategyStatus,
	"order":           MessageKindOrder,
	"ramm pool state": MessageKindRammPoolState,
	"imb ratios":      MessageKindImbRatios,
	"ramm volumes":    MessageKindRammVolumes,
}

// ParseMessageKind maps a "msg" tag to its kind. Unrecognized tags map to
// MessageKindUnknown.
func ParseMessageKind(tag string) MessageKind {
	kind, ok := messageKindTags[tag]
	if !ok {
		return MessageKindUnknown
	}
	return kind
}

func (k MessageKind) String() string {
	switch k {
	case MessageKindPrice:
		return "price"
	case MessageKindStrategies:
		return "strategies"
	case MessageKindStrategyStatus:
		return "strategy status"
	case MessageKindOrder:
		return "order"
	case MessageKindRammPoolState:
		return "ramm pool state"
	case MessageKindImbRatios:
		return "imb ratios"
	case MessageKindRammVolumes:
		return "ramm volumes"
	default:
		return "unknown"
	}
}

// Recognized reports whether k is one of the seven known kinds.
func (k MessageKind) Recognized() bool {
	return k != MessageKindUnknown
}
