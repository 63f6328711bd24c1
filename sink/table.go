package sink

import (
	"context"
	"fmt"
	"sync"

	"github.com/renproject/kv"
)

// Table is a Sink that stores every delivered payload in a kv.Table, keyed by
// the order in which it was delivered.
type Table struct {
	mu    *sync.Mutex
	table kv.Table
	next  uint64
}

// NewTable returns a Table that stores payloads in the given kv.Table. The
// kv.Table is expected to be empty.
func NewTable(table kv.Table) *Table {
	return &Table{
		mu:    new(sync.Mutex),
		table: table,
	}
}

// NewMemTable returns a Table backed by an in-memory kv.Table.
func NewMemTable(name string) *Table {
	return NewTable(kv.NewMemDB(kv.JSONCodec).Table(name))
}

// Deliver stores the payload.
func (t *Table) Deliver(ctx context.Context, payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.table.Insert(key(t.next), payload); err != nil {
		return fmt.Errorf("inserting payload=%d: %v", t.next, err)
	}
	t.next++
	return nil
}

// Len returns the number of payloads that have been delivered.
func (t *Table) Len() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.next
}

// Payload returns the i-th delivered payload.
func (t *Table) Payload(i uint64) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if i >= t.next {
		return nil, fmt.Errorf("payload=%d not found: %d payloads delivered", i, t.next)
	}
	payload := []byte{}
	if err := t.table.Get(key(i), &payload); err != nil {
		return nil, fmt.Errorf("loading payload=%d: %v", i, err)
	}
	return payload, nil
}

// Payloads returns every delivered payload, in the order of delivery.
func (t *Table) Payloads() ([][]byte, error) {
	n := t.Len()
	payloads := make([][]byte, 0, n)
	for i := uint64(0); i < n; i++ {
		payload, err := t.Payload(i)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, payload)
	}
	return payloads, nil
}

func key(i uint64) string {
	return fmt.Sprintf("%020d", i)
}
