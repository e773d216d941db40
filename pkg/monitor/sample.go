package monitor

import (
	"fmt"
	"time"

	"github.com/golang/protobuf/jsonpb"
	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"

	"github.com/robotalks/pidctl.go/pkg/l0/pid"
)

// Reading is the value of one command.
type Reading struct {
	Entry pid.Entry
	Value pid.Value
}

// Sample is the readings of one channel in a cycle.
type Sample struct {
	Device   string
	Bank     pid.Bank
	At       time.Time
	Readings []Reading
}

// PollResult is the outcome of one polling cycle. Samples is empty
// when Err is set.
type PollResult struct {
	Device  string
	At      time.Time
	Samples []Sample
	Err     error
}

// Struct converts the sample into a protobuf Struct:
//
//	{"device": "dev1", "bank": "bank1", "at": "...", "values": {"current_cps": 12.5}}
func (s *Sample) Struct() *structpb.Struct {
	values := &structpb.Struct{Fields: make(map[string]*structpb.Value)}
	for _, r := range s.Readings {
		values.Fields[r.Entry.Name] = numberValue(r.Value.Float64())
	}
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"device": stringValue(s.Device),
			"bank":   stringValue(s.Bank.String()),
			"at":     stringValue(s.At.UTC().Format(time.RFC3339Nano)),
			"values": {Kind: &structpb.Value_StructValue{StructValue: values}},
		},
	}
}

// Marshal encodes the sample in protobuf wire format.
func (s *Sample) Marshal() ([]byte, error) {
	return proto.Marshal(s.Struct())
}

// UnmarshalSample decodes a published sample.
func UnmarshalSample(data []byte) (*Sample, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	s := &Sample{Device: st.Fields["device"].GetStringValue()}
	switch bank := st.Fields["bank"].GetStringValue(); bank {
	case pid.Bank1.String():
		s.Bank = pid.Bank1
	case pid.Bank2.String():
		s.Bank = pid.Bank2
	default:
		return nil, fmt.Errorf("invalid bank %q", bank)
	}
	if at := st.Fields["at"].GetStringValue(); at != "" {
		t, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, err
		}
		s.At = t
	}
	values := st.Fields["values"].GetStructValue()
	if values == nil {
		return s, nil
	}
	for _, e := range pid.Entries(pid.Channel) {
		v, ok := values.Fields[e.Name]
		if !ok {
			continue
		}
		val, err := pid.CoerceValue(e.Response, v.GetNumberValue())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name, err)
		}
		s.Readings = append(s.Readings, Reading{Entry: e, Value: val})
	}
	return s, nil
}

// FormatJSON renders a published sample as JSON.
func FormatJSON(data []byte, indent string) (string, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return "", err
	}
	m := &jsonpb.Marshaler{Indent: indent}
	return m.MarshalToString(&st)
}

func numberValue(v float64) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: v}}
}

func stringValue(s string) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: s}}
}
