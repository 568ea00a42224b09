package cl

import (
	"encoding/json"
	"fmt"

	"github.com/govm-net/simnet/core"
)

// encoded is the storage form of a value.
type encoded struct {
	Type     Kind                       `json:"type"`
	Value    json.RawMessage            `json:"value,omitempty"`
	Ok       *bool                      `json:"ok,omitempty"`
	Fields   map[string]json.RawMessage `json:"fields,omitempty"`
	Contract string                     `json:"contract,omitempty"`
}

// Marshal encodes v for storage.
func Marshal(v Value) ([]byte, error) {
	e, err := toEncoded(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(e)
}

// Unmarshal decodes a value written by Marshal.
func Unmarshal(data []byte) (Value, error) {
	var e encoded
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}
	return fromEncoded(&e)
}

func toEncoded(v Value) (*encoded, error) {
	switch x := v.(type) {
	case UInt:
		raw, _ := json.Marshal(x.Dec())
		return &encoded{Type: KindUInt, Value: raw}, nil
	case Bool:
		raw, _ := json.Marshal(bool(x))
		return &encoded{Type: KindBool, Value: raw}, nil
	case StringASCII:
		raw, err := json.Marshal(string(x))
		if err != nil {
			return nil, err
		}
		return &encoded{Type: KindStringASCII, Value: raw}, nil
	case Principal:
		raw, _ := json.Marshal(x.Address.Principal())
		return &encoded{Type: KindPrincipal, Value: raw, Contract: x.Contract}, nil
	case Tuple:
		fields := make(map[string]json.RawMessage, len(x))
		for k, fv := range x {
			b, err := Marshal(fv)
			if err != nil {
				return nil, fmt.Errorf("tuple field %q: %w", k, err)
			}
			fields[k] = b
		}
		return &encoded{Type: KindTuple, Fields: fields}, nil
	case Response:
		inner, err := Marshal(x.Value)
		if err != nil {
			return nil, err
		}
		ok := x.Committed
		return &encoded{Type: KindResponse, Ok: &ok, Value: inner}, nil
	}
	return nil, fmt.Errorf("%w: cannot encode %T", ErrType, v)
}

func fromEncoded(e *encoded) (Value, error) {
	switch e.Type {
	case KindUInt:
		var dec string
		if err := json.Unmarshal(e.Value, &dec); err != nil {
			return nil, fmt.Errorf("failed to decode uint: %w", err)
		}
		return ParseUInt(dec)
	case KindBool:
		var b bool
		if err := json.Unmarshal(e.Value, &b); err != nil {
			return nil, fmt.Errorf("failed to decode bool: %w", err)
		}
		return Bool(b), nil
	case KindStringASCII:
		var s string
		if err := json.Unmarshal(e.Value, &s); err != nil {
			return nil, fmt.Errorf("failed to decode string: %w", err)
		}
		return NewStringASCII(s)
	case KindPrincipal:
		var s string
		if err := json.Unmarshal(e.Value, &s); err != nil {
			return nil, fmt.Errorf("failed to decode principal: %w", err)
		}
		addr, err := core.ParsePrincipal(s)
		if err != nil {
			return nil, err
		}
		return Principal{Address: addr, Contract: e.Contract}, nil
	case KindTuple:
		t := make(Tuple, len(e.Fields))
		for k, raw := range e.Fields {
			fv, err := Unmarshal(raw)
			if err != nil {
				return nil, fmt.Errorf("tuple field %q: %w", k, err)
			}
			t[k] = fv
		}
		return t, nil
	case KindResponse:
		if e.Ok == nil {
			return nil, fmt.Errorf("%w: response without ok flag", ErrSyntax)
		}
		inner, err := Unmarshal(e.Value)
		if err != nil {
			return nil, err
		}
		return Response{Committed: *e.Ok, Value: inner}, nil
	}
	return nil, fmt.Errorf("%w: unknown value type %q", ErrType, e.Type)
}
