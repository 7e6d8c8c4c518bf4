package message

import (
	"bytes"
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/convoy/internal/canon"
	"github.com/roach88/convoy/internal/model"
)

// wireEnvelope is the JSON form of an Envelope.
type wireEnvelope struct {
	Seq    int64           `json:"seq"`
	From   string          `json:"from"`
	To     string          `json:"to"`
	SentAt model.TimeOfDay `json:"sent_at"`
	Kind   Kind            `json:"kind"`
	Body   json.RawMessage `json:"body"`
}

// EncodeBody returns the JSON encoding of a payload.
func EncodeBody(p Payload) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("encode body: nil payload")
	}
	return json.Marshal(p)
}

// NewPayload returns an empty payload of kind k.
func NewPayload(k Kind) (Payload, error) {
	switch k {
	case KindCFP:
		return &CFP{}, nil
	case KindPropose:
		return &Propose{}, nil
	case KindRefuse:
		return &Refuse{}, nil
	case KindAccept:
		return &Accept{}, nil
	case KindReject:
		return &Reject{}, nil
	case KindDeliveryComplete:
		return &DeliveryComplete{}, nil
	case KindScheduleChanged:
		return &ScheduleChanged{}, nil
	case KindScheduleUpdated:
		return &ScheduleUpdated{}, nil
	}
	return nil, fmt.Errorf("unknown message kind %q", k)
}

// DecodeBody decodes data into the payload type for kind. Unknown fields
// are rejected. The returned payload is a value, not a pointer.
func DecodeBody(k Kind, data []byte) (Payload, error) {
	ptr, err := NewPayload(k)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(ptr); err != nil {
		return nil, fmt.Errorf("decode %s body: %w", k, err)
	}
	return deref(ptr), nil
}

func deref(p Payload) Payload {
	switch v := p.(type) {
	case *CFP:
		return *v
	case *Propose:
		return *v
	case *Refuse:
		return *v
	case *Accept:
		return *v
	case *Reject:
		return *v
	case *DeliveryComplete:
		return *v
	case *ScheduleChanged:
		return *v
	case *ScheduleUpdated:
		return *v
	}
	return p
}

// MarshalEnvelope encodes e as a single JSON object.
func MarshalEnvelope(e Envelope) ([]byte, error) {
	body, err := EncodeBody(e.Body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireEnvelope{
		Seq:    e.Seq,
		From:   e.From,
		To:     e.To,
		SentAt: e.SentAt,
		Kind:   e.Body.Kind(),
		Body:   body,
	})
}

// UnmarshalEnvelope is the inverse of MarshalEnvelope.
func UnmarshalEnvelope(data []byte) (Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	body, err := DecodeBody(w.Kind, w.Body)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Seq: w.Seq, From: w.From, To: w.To, SentAt: w.SentAt, Body: body}, nil
}

// snapshotPlaces is the precision used for measurements in snapshots.
const snapshotPlaces = 3

// Snapshot returns the envelope as a canonical-JSON-ready value. Every
// float64 field is rendered as a fixed-precision decimal string, whole
// values included, so the output is byte-stable across platforms.
func Snapshot(e Envelope) (map[string]any, error) {
	if e.Body == nil {
		return nil, fmt.Errorf("snapshot: nil payload")
	}
	body, err := snapshotValue(reflect.ValueOf(e.Body))
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", e.Kind(), err)
	}
	return map[string]any{
		"seq":     e.Seq,
		"from":    e.From,
		"to":      e.To,
		"sent_at": e.SentAt.String(),
		"kind":    string(e.Kind()),
		"body":    body,
	}, nil
}

// SnapshotBytes is Snapshot encoded as canonical JSON.
func SnapshotBytes(e Envelope) ([]byte, error) {
	s, err := Snapshot(e)
	if err != nil {
		return nil, err
	}
	return canon.Marshal(s)
}

var textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()

// snapshotValue walks a payload by its Go types, following json tags.
// Nil slices and omitempty zero values are left out.
func snapshotValue(v reflect.Value) (any, error) {
	if v.Type().Implements(textMarshalerType) {
		text, err := v.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return nil, err
		}
		return string(text), nil
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		return snapshotValue(v.Elem())
	case reflect.Float32, reflect.Float64:
		return decimal.NewFromFloat(v.Float()).StringFixed(snapshotPlaces), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint()), nil
	case reflect.String:
		return v.String(), nil
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}
		out := make([]any, v.Len())
		for i := range v.Len() {
			elem, err := snapshotValue(v.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = elem
		}
		return out, nil
	case reflect.Struct:
		out := make(map[string]any, v.NumField())
		t := v.Type()
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name, opts, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				continue
			}
			if name == "" {
				name = f.Name
			}
			fv := v.Field(i)
			if opts == "omitempty" && (fv.IsZero() || fv.Kind() == reflect.Slice && fv.Len() == 0) {
				continue
			}
			elem, err := snapshotValue(fv)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			if elem != nil {
				out[name] = elem
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported field type %s", v.Type())
}
