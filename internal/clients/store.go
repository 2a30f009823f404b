package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/2beens/fitcrm/internal/storage"
	"github.com/2beens/fitcrm/internal/telemetry/metrics"
	"github.com/2beens/fitcrm/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// RecordStore keeps the whole client collection as one JSON array in a storage slot.
// Every save replaces the previous value completely.
type RecordStore struct {
	slot    storage.Slot
	metrics *metrics.Manager
}

func NewRecordStore(slot storage.Slot, metricsManager *metrics.Manager) *RecordStore {
	return &RecordStore{
		slot:    slot,
		metrics: metricsManager,
	}
}

// Load never fails: a missing slot yields an empty collection, and so does an
// unreadable or malformed one (logged and counted).
func (s *RecordStore) Load(ctx context.Context) []Client {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.clients.load")
	defer span.End()

	clients, err := s.loadForUpdate(ctx)
	if err != nil {
		s.corrupt(err)
		return []Client{}
	}

	span.SetAttributes(attribute.Int("clients.count", len(clients)))
	return clients
}

// loadForUpdate is Load for the mutation paths: a missing or malformed collection still
// degrades to empty, but a failing slot read is returned, so the caller never saves a
// partial collection over one it could not read.
func (s *RecordStore) loadForUpdate(ctx context.Context) ([]Client, error) {
	data, err := s.slot.Read(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrSlotEmpty) {
			return []Client{}, nil
		}
		return nil, fmt.Errorf("read slot [%s]: %w", s.slot.Name(), err)
	}

	clients, err := decodeClients(data)
	if err != nil {
		s.corrupt(err)
		return []Client{}, nil
	}

	return clients, nil
}

func (s *RecordStore) Save(ctx context.Context, clients []Client) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.clients.save")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("clients.count", len(clients)))

	if clients == nil {
		clients = []Client{}
	}
	for i := range clients {
		clients[i].normalize()
	}

	data, err := json.Marshal(clients)
	if err != nil {
		return fmt.Errorf("marshal clients: %w", err)
	}

	if err := s.slot.Write(ctx, data); err != nil {
		return fmt.Errorf("write slot [%s]: %w", s.slot.Name(), err)
	}

	if s.metrics != nil {
		s.metrics.GaugeClients.Set(float64(len(clients)))
	}

	return nil
}

// IsEmpty reports whether the slot holds no client at all: never written, blank, or "[]".
// A slot with unreadable content is not empty, so nothing gets written over it.
func (s *RecordStore) IsEmpty(ctx context.Context) (bool, error) {
	data, err := s.slot.Read(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrSlotEmpty) {
			return true, nil
		}
		return false, fmt.Errorf("read slot: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return true, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return false, nil
	}

	return len(raw) == 0, nil
}

func (s *RecordStore) corrupt(err error) {
	log.Errorf("client collection [%s] unreadable, using empty collection: %s", s.slot.Name(), err)
	if s.metrics != nil {
		s.metrics.CounterCorruptCollections.Inc()
	}
}

func decodeClients(data []byte) ([]Client, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []Client{}, nil
	}

	var clients []Client
	if err := json.Unmarshal(data, &clients); err != nil {
		return nil, fmt.Errorf("unmarshal clients: %w", err)
	}

	if clients == nil {
		// a stored "null"
		return []Client{}, nil
	}

	for i := range clients {
		clients[i].normalize()
	}

	return clients, nil
}
