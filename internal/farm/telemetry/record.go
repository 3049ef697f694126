package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var ErrInvalidRecord = errors.New("invalid telemetry record")

// Record is one completed or abandoned segment, as sent to the collection
// endpoint. Times are milliseconds.
type Record struct {
	Sender         string   `json:"sender"`
	Runtime        float64  `json:"runtime"`
	TerritoryTyp   uint16   `json:"territoryTyp"`
	HoardFound     *bool    `json:"hoardFound,omitempty"`
	HoardCollected *bool    `json:"hoardCollected,omitempty"`
	MoveTime       *float64 `json:"moveTime,omitempty"`
	SafetyMode     bool     `json:"safetyMode"`
}

func (r Record) Valid() bool {
	valid := r.Runtime > 0 && r.TerritoryTyp > 0
	if r.MoveTime != nil {
		valid = valid && *r.MoveTime > 0
	}
	return valid
}

const recordSchemaJSON = `{
  "type": "object",
  "required": ["sender", "runtime", "territoryTyp", "safetyMode"],
  "additionalProperties": false,
  "properties": {
    "sender": {"type": "string"},
    "runtime": {"type": "number", "exclusiveMinimum": 0},
    "territoryTyp": {"type": "integer", "minimum": 1, "maximum": 65535},
    "hoardFound": {"type": "boolean"},
    "hoardCollected": {"type": "boolean"},
    "moveTime": {"type": "number", "exclusiveMinimum": 0},
    "safetyMode": {"type": "boolean"}
  }
}`

var recordSchema = jsonschema.MustCompileString("record.schema.json", recordSchemaJSON)

// Encode serializes r and checks the payload against the wire schema.
func Encode(r Record) ([]byte, error) {
	if !r.Valid() {
		return nil, ErrInvalidRecord
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	if err := recordSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return b, nil
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
