package state

import (
	"encoding/binary"
	"fmt"
	"sort"

	"loanft/core/types"
)

// EventRecord is a committed event together with its position in the log.
type EventRecord struct {
	Sequence  uint64
	TxHash    [32]byte
	Timestamp int64
	Event     *types.Event
}

type storedAttribute struct {
	Key   string
	Value string
}

type storedEventRecord struct {
	Sequence   uint64
	TxHash     [32]byte
	Timestamp  uint64
	Type       string
	Attributes []storedAttribute
}

func eventRecordKey(seq uint64) []byte {
	return joinKey(eventRecordPrefix, uint64Bytes(seq))
}

func eventEscrowKey(escrow [20]byte) []byte {
	return joinKey(eventEscrowPrefix, escrow[:])
}

// AppendEvent assigns the next sequence number to evt and stores it. When
// escrow is non-zero the record is also indexed under that escrow.
func (m *Manager) AppendEvent(txHash [32]byte, timestamp int64, escrow [20]byte, evt *types.Event) (*EventRecord, error) {
	if evt == nil {
		return nil, fmt.Errorf("event must not be nil")
	}
	var seq uint64
	if _, err := m.KVGet(eventSeqKey, &seq); err != nil {
		return nil, err
	}
	seq++
	keys := make([]string, 0, len(evt.Attributes))
	for k := range evt.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := make([]storedAttribute, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, storedAttribute{Key: k, Value: evt.Attributes[k]})
	}
	stored := storedEventRecord{
		Sequence:   seq,
		TxHash:     txHash,
		Timestamp:  nonNegative(timestamp),
		Type:       evt.Type,
		Attributes: attrs,
	}
	if err := m.KVPut(eventRecordKey(seq), stored); err != nil {
		return nil, err
	}
	if err := m.KVPut(eventSeqKey, seq); err != nil {
		return nil, err
	}
	if escrow != ([20]byte{}) {
		if err := m.KVAppend(eventEscrowKey(escrow), uint64Bytes(seq)); err != nil {
			return nil, err
		}
	}
	return stored.toRecord(), nil
}

func (s *storedEventRecord) toRecord() *EventRecord {
	attrs := make(map[string]string, len(s.Attributes))
	for _, a := range s.Attributes {
		attrs[a.Key] = a.Value
	}
	return &EventRecord{
		Sequence:  s.Sequence,
		TxHash:    s.TxHash,
		Timestamp: int64(s.Timestamp),
		Event:     &types.Event{Type: s.Type, Attributes: attrs},
	}
}

// EventBySequence loads a single event record.
func (m *Manager) EventBySequence(seq uint64) (*EventRecord, bool, error) {
	var stored storedEventRecord
	ok, err := m.KVGet(eventRecordKey(seq), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return stored.toRecord(), true, nil
}

// LatestEventSequence returns the sequence of the last appended event.
func (m *Manager) LatestEventSequence() (uint64, error) {
	var seq uint64
	_, err := m.KVGet(eventSeqKey, &seq)
	return seq, err
}

// EventsByEscrow returns the records indexed under escrow in log order.
func (m *Manager) EventsByEscrow(escrow [20]byte) ([]*EventRecord, error) {
	list, err := m.KVGetList(eventEscrowKey(escrow))
	if err != nil {
		return nil, err
	}
	out := make([]*EventRecord, 0, len(list))
	for _, raw := range list {
		if len(raw) != 8 {
			continue
		}
		record, ok, err := m.EventBySequence(binary.BigEndian.Uint64(raw))
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, record)
		}
	}
	return out, nil
}
