package ledger

import (
	"encoding/json"
	"fmt"
	"log"
)

type ttlExtension struct {
	threshold uint32
	extendTo  uint32
}

// Env is the view of the ledger handed to one invocation. Writes are
// buffered until the invocation returns.
type Env struct {
	ledger    *Ledger
	invoker   string
	txID      string
	sequence  uint32
	timestamp uint64

	writes    map[string]json.RawMessage
	extension *ttlExtension
	events    []Event
	logs      []string
}

func (e *Env) Get(key string, v any) (bool, error) {
	raw, ok := e.writes[key]
	if !ok {
		raw, ok = e.ledger.entries[key]
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

func (e *Env) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	e.writes[key] = raw
	return nil
}

// ExtendTTL asks for the instance lease to be bumped to extendTo ledgers
// when fewer than threshold remain. Applied on commit.
func (e *Env) ExtendTTL(threshold, extendTo uint32) {
	e.extension = &ttlExtension{threshold: threshold, extendTo: extendTo}
}

func (e *Env) RequireAuth(identity string) error {
	if identity == "" || identity != e.invoker {
		return fmt.Errorf("%w: %s", ErrUnauthorized, identity)
	}
	return nil
}

func (e *Env) Timestamp() uint64 { return e.timestamp }
func (e *Env) Sequence() uint32  { return e.sequence }
func (e *Env) TxID() string      { return e.txID }
func (e *Env) Invoker() string   { return e.invoker }

func (e *Env) Log(msg string) {
	e.logs = append(e.logs, msg)
	log.Printf("[ledger] tx=%s %s", e.txID, msg)
}

func (e *Env) Emit(eventType string, attributes map[string]string) {
	e.events = append(e.events, Event{
		TxID:       e.txID,
		Sequence:   e.sequence,
		Type:       eventType,
		Attributes: attributes,
	})
}
