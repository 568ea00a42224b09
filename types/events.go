package types

import (
	"encoding/json"
	"fmt"

	"github.com/govm-net/simnet/cl"
	"github.com/govm-net/simnet/core"
	"github.com/govm-net/simnet/security"
)

// Event names.
const (
	PrintEvent       = "print_event"
	STXTransferEvent = "stx_transfer_event"
)

// PrintTopic is the topic of every print event.
const PrintTopic = "print"

// Event is emitted by a successful call.
type Event struct {
	Event string
	Data  EventData
}

// EventData carries the fields of an event. Print events fill
// ContractIdentifier, Topic and Value; transfers fill Sender, Recipient
// and Amount.
type EventData struct {
	ContractIdentifier string
	Topic              string
	Value              cl.Value

	Sender    core.Address
	Recipient core.Address
	Amount    uint64
}

// CallResult is what the simulated network returns for a call.
type CallResult struct {
	Result      cl.Value
	Events      []Event
	Costs       security.Costs
	TxHash      core.Hash
	BlockHeight uint64
}

type printPayload struct {
	ContractIdentifier string          `json:"contract_identifier"`
	Topic              string          `json:"topic"`
	Value              json.RawMessage `json:"value"`
}

type transferPayload struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
}

// Record converts an event to its stored form.
func (e Event) Record(index int) (EventRecord, error) {
	rec := EventRecord{Index: index, Event: e.Event, Contract: e.Data.ContractIdentifier, Topic: e.Data.Topic}
	var err error
	switch e.Event {
	case PrintEvent:
		var value []byte
		value, err = cl.Marshal(e.Data.Value)
		if err != nil {
			return rec, fmt.Errorf("failed to encode print value: %w", err)
		}
		rec.Payload, err = json.Marshal(printPayload{
			ContractIdentifier: e.Data.ContractIdentifier,
			Topic:              e.Data.Topic,
			Value:              value,
		})
	case STXTransferEvent:
		rec.Payload, err = json.Marshal(transferPayload{
			Sender:    e.Data.Sender.Principal(),
			Recipient: e.Data.Recipient.Principal(),
			Amount:    e.Data.Amount,
		})
	default:
		return rec, fmt.Errorf("%w: unknown event %q", core.ErrInvalidArgument, e.Event)
	}
	if err != nil {
		return rec, fmt.Errorf("failed to encode event: %w", err)
	}
	return rec, nil
}

// Decode rebuilds the event from its stored form.
func (r EventRecord) Decode() (Event, error) {
	switch r.Event {
	case PrintEvent:
		var p printPayload
		if err := json.Unmarshal(r.Payload, &p); err != nil {
			return Event{}, fmt.Errorf("failed to decode print event: %w", err)
		}
		value, err := cl.Unmarshal(p.Value)
		if err != nil {
			return Event{}, err
		}
		return Event{Event: PrintEvent, Data: EventData{
			ContractIdentifier: p.ContractIdentifier,
			Topic:              p.Topic,
			Value:              value,
		}}, nil
	case STXTransferEvent:
		var p transferPayload
		if err := json.Unmarshal(r.Payload, &p); err != nil {
			return Event{}, fmt.Errorf("failed to decode transfer event: %w", err)
		}
		sender, err := core.ParsePrincipal(p.Sender)
		if err != nil {
			return Event{}, err
		}
		recipient, err := core.ParsePrincipal(p.Recipient)
		if err != nil {
			return Event{}, err
		}
		return Event{Event: STXTransferEvent, Data: EventData{
			Sender:    sender,
			Recipient: recipient,
			Amount:    p.Amount,
		}}, nil
	}
	return Event{}, fmt.Errorf("%w: unknown event %q", core.ErrInvalidArgument, r.Event)
}
