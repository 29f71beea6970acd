package ingest

import (
	"bytes"
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"capyviz/src/datamodels"
)

// SkipReason says why a log line contributed nothing to the dataset.
type SkipReason string

const (
	SkipReasonNone                 SkipReason = ""
	SkipReasonEmptyLine            SkipReason = "empty_line"
	SkipReasonInvalidJSON          SkipReason = "invalid_json"
	SkipReasonMissingKind          SkipReason = "missing_kind"
	SkipReasonMissingField         SkipReason = "missing_field"
	SkipReasonUnregisteredStrategy SkipReason = "unregistered_strategy"
)

// logLine is one decoded and validated Capybot message. Which fields are
// set depends on kind.
type logLine struct {
	kind datamodels.MessageKind
	// seconds since epoch
	timestamp float64
	// source uri, strategy uri or ramm id
	entity string
	price  float64
	data   *datamodels.Payload
	// strategies announcement, in announcement order
	announced *orderedmap.OrderedMap[string, json.RawMessage]
}

type priceEntry struct {
	Price     *float64 `json:"price"`
	SourceURI *string  `json:"source_uri"`
}

// parseLine decodes raw and checks that every field its kind needs is
// present and well typed. A non-empty SkipReason means the line must not
// touch the dataset.
func parseLine(raw []byte) (logLine, SkipReason) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return logLine{}, SkipReasonEmptyLine
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return logLine{}, SkipReasonInvalidJSON
	}

	tagRaw, ok := fields["msg"]
	if !ok {
		return logLine{}, SkipReasonMissingKind
	}
	var tag string
	if err := json.Unmarshal(tagRaw, &tag); err != nil {
		return logLine{}, SkipReasonMissingKind
	}

	line := logLine{kind: datamodels.ParseMessageKind(tag)}

	switch line.kind {
	case datamodels.MessageKindPrice:
		var entry priceEntry
		if !decodeField(fields, "price", &entry) || entry.Price == nil || entry.SourceURI == nil {
			return logLine{}, SkipReasonMissingField
		}
		line.price = *entry.Price
		line.entity = *entry.SourceURI
		if !decodeTimestamp(fields, &line) {
			return logLine{}, SkipReasonMissingField
		}

	case datamodels.MessageKindStrategies:
		// each strategy's parameters are decoded on their own when applied
		var announced *orderedmap.OrderedMap[string, json.RawMessage]
		if !decodeField(fields, "strategies", &announced) || announced == nil {
			return logLine{}, SkipReasonMissingField
		}
		line.announced = announced

	case datamodels.MessageKindStrategyStatus:
		if !decodeEntityAndData(fields, "uri", &line) || !decodeTimestamp(fields, &line) {
			return logLine{}, SkipReasonMissingField
		}

	case datamodels.MessageKindOrder:
		if !decodeField(fields, "strategy", &line.entity) || !decodeTimestamp(fields, &line) {
			return logLine{}, SkipReasonMissingField
		}

	case datamodels.MessageKindRammPoolState, datamodels.MessageKindImbRatios:
		if !decodeEntityAndData(fields, "ramm_id", &line) || !decodeTimestamp(fields, &line) {
			return logLine{}, SkipReasonMissingField
		}

	case datamodels.MessageKindRammVolumes:
		// nothing to decode

	default:
		// unknown kinds carry nothing we read
	}

	return line, SkipReasonNone
}

func decodeField(fields map[string]json.RawMessage, name string, dst any) bool {
	raw, ok := fields[name]
	if !ok {
		return false
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

// decodeTimestamp reads the epoch millisecond "time" field as seconds.
func decodeTimestamp(fields map[string]json.RawMessage, line *logLine) bool {
	var millis float64
	if !decodeField(fields, "time", &millis) {
		return false
	}
	line.timestamp = millis / 1000
	return true
}

func decodeEntityAndData(fields map[string]json.RawMessage, entityField string, line *logLine) bool {
	if !decodeField(fields, entityField, &line.entity) {
		return false
	}
	var data *datamodels.Payload
	if !decodeField(fields, "data", &data) || data == nil {
		return false
	}
	line.data = data
	return true
}
