package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/2beens/fitcrm/internal/telemetry/metrics"
	"github.com/2beens/fitcrm/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var ErrClientNotFound = errors.New("client not found")

const (
	historyDateLayout   = "2006-01-02"
	unnamedExerciseName = "Unnamed exercise"
	maxIDAttempts       = 10
)

// Repo is the CRUD layer over the client collection. Every mutation loads the whole
// collection, changes it in memory and saves it back, holding the repo lock meanwhile.
type Repo struct {
	mu      sync.Mutex
	store   *RecordStore
	newID   IDGenerator
	now     func() time.Time
	metrics *metrics.Manager
}

type RepoOption func(r *Repo)

func WithIDGenerator(gen IDGenerator) RepoOption {
	return func(r *Repo) {
		r.newID = gen
	}
}

func WithClock(now func() time.Time) RepoOption {
	return func(r *Repo) {
		r.now = now
	}
}

func NewRepo(store *RecordStore, metricsManager *metrics.Manager, opts ...RepoOption) *Repo {
	r := &Repo{
		store:   store,
		newID:   TimestampID,
		now:     time.Now,
		metrics: metricsManager,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateOrUpdate appends a new client when data.ID is empty, otherwise it overwrites the
// client with that id. On update the id and the training history are kept, unless the
// history is explicitly supplied. Returns the stored client and whether it was created.
func (r *Repo) CreateOrUpdate(ctx context.Context, data Client) (_ *Client, created bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.clients.createOrUpdate")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	clients, err := r.store.loadForUpdate(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("load clients: %w", err)
	}

	if data.ID == "" {
		id, err := r.freshID(clients)
		if err != nil {
			return nil, false, err
		}
		data.ID = id
		data.normalize()
		clients = append(clients, data)
		span.SetAttributes(attribute.String("client.id", id))

		if err := r.store.Save(ctx, clients); err != nil {
			return nil, false, fmt.Errorf("save clients: %w", err)
		}
		if r.metrics != nil {
			r.metrics.CounterClientsCreated.Inc()
		}

		log.Debugf("client added: [%s] %s", data.ID, data.FullName)
		return &data, true, nil
	}

	span.SetAttributes(attribute.String("client.id", data.ID))

	idx := indexOf(clients, data.ID)
	if idx < 0 {
		return nil, false, ErrClientNotFound
	}

	if data.TrainingHistory == nil {
		data.TrainingHistory = clients[idx].TrainingHistory
	}
	data.normalize()
	clients[idx] = data

	if err := r.store.Save(ctx, clients); err != nil {
		return nil, false, fmt.Errorf("save clients: %w", err)
	}
	if r.metrics != nil {
		r.metrics.CounterClientsUpdated.Inc()
	}

	log.Debugf("client updated: [%s] %s", data.ID, data.FullName)
	return &data, false, nil
}

// Delete removes the client. Deleting an unknown id is not an error, it just reports false.
func (r *Repo) Delete(ctx context.Context, id string) (_ bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.clients.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("client.id", id))

	r.mu.Lock()
	defer r.mu.Unlock()

	clients, err := r.store.loadForUpdate(ctx)
	if err != nil {
		return false, fmt.Errorf("load clients: %w", err)
	}
	idx := indexOf(clients, id)
	if idx < 0 {
		log.Tracef("delete client [%s]: not found, nothing to do", id)
		return false, nil
	}

	remaining := make([]Client, 0, len(clients)-1)
	remaining = append(remaining, clients[:idx]...)
	remaining = append(remaining, clients[idx+1:]...)

	if err := r.store.Save(ctx, remaining); err != nil {
		return false, fmt.Errorf("save clients: %w", err)
	}
	if r.metrics != nil {
		r.metrics.CounterClientsDeleted.Inc()
	}

	log.Debugf("client deleted: [%s]", id)
	return true, nil
}

func (r *Repo) Get(ctx context.Context, id string) (*Client, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.clients.get")
	defer span.End()
	span.SetAttributes(attribute.String("client.id", id))

	clients := r.store.Load(ctx)
	idx := indexOf(clients, id)
	if idx < 0 {
		return nil, ErrClientNotFound
	}
	return &clients[idx], nil
}

// FindByName returns the first client whose full name equals name, ignoring case
// and surrounding whitespace.
func (r *Repo) FindByName(ctx context.Context, name string) (*Client, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.clients.findByName")
	defer span.End()

	q := strings.ToLower(strings.TrimSpace(name))
	if q == "" {
		return nil, ErrClientNotFound
	}

	clients := r.store.Load(ctx)
	for i := range clients {
		if strings.ToLower(clients[i].FullName) == q {
			return &clients[i], nil
		}
	}
	return nil, ErrClientNotFound
}

// List returns the clients whose name contains query (case-insensitive), in stored order.
// An empty query returns the whole collection.
func (r *Repo) List(ctx context.Context, query string) []Client {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.clients.list")
	defer span.End()

	clients := r.store.Load(ctx)
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return clients
	}

	filtered := make([]Client, 0, len(clients))
	for i := range clients {
		if nameMatches(&clients[i], q) {
			filtered = append(filtered, clients[i])
		}
	}

	span.SetAttributes(attribute.String("query", q))
	span.SetAttributes(attribute.Int("clients.count", len(filtered)))
	return filtered
}

func (r *Repo) Count(ctx context.Context) int {
	return len(r.store.Load(ctx))
}

// AppendHistory puts "<YYYY-MM-DD>: <exercise>" (UTC date) in front of the client's history.
func (r *Repo) AppendHistory(ctx context.Context, id, exerciseName string) (_ *Client, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.clients.appendHistory")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("client.id", id))

	r.mu.Lock()
	defer r.mu.Unlock()

	clients, err := r.store.loadForUpdate(ctx)
	if err != nil {
		return nil, fmt.Errorf("load clients: %w", err)
	}
	idx := indexOf(clients, id)
	if idx < 0 {
		return nil, ErrClientNotFound
	}

	name := strings.TrimSpace(exerciseName)
	if name == "" {
		name = unnamedExerciseName
	}
	entry := NewTextEntry(fmt.Sprintf("%s: %s", r.now().UTC().Format(historyDateLayout), name))

	history := make([]HistoryEntry, 0, len(clients[idx].TrainingHistory)+1)
	history = append(history, entry)
	history = append(history, clients[idx].TrainingHistory...)
	clients[idx].TrainingHistory = history

	if err := r.store.Save(ctx, clients); err != nil {
		return nil, fmt.Errorf("save clients: %w", err)
	}
	if r.metrics != nil {
		r.metrics.CounterHistoryEntries.Inc()
	}

	log.Debugf("added [%s] to training history of [%s] %s", name, id, clients[idx].FullName)
	return &clients[idx], nil
}

func (r *Repo) freshID(clients []Client) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := r.newID()
		if id != "" && indexOf(clients, id) < 0 {
			return id, nil
		}
		log.Warnf("generated client id [%s] already taken, retrying", id)
	}
	return "", errors.New("failed to generate a unique client id")
}

func indexOf(clients []Client, id string) int {
	for i := range clients {
		if clients[i].ID == id {
			return i
		}
	}
	return -1
}
