package clients

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/2beens/fitcrm/internal/telemetry/metrics"
	"github.com/2beens/fitcrm/internal/telemetry/tracing"
	"github.com/2beens/fitcrm/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=repo_mocks_test.go -package=clients_test

type clientsRepo interface {
	CreateOrUpdate(ctx context.Context, data Client) (_ *Client, created bool, err error)
	Delete(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id string) (*Client, error)
	FindByName(ctx context.Context, name string) (*Client, error)
	List(ctx context.Context, query string) []Client
	AppendHistory(ctx context.Context, id, exerciseName string) (*Client, error)
}

type ClientsListResponse struct {
	Clients []Client `json:"clients"`
	Total   int      `json:"total"`
}

type DeleteClientResponse struct {
	DeletedID string `json:"deletedId"`
	Deleted   bool   `json:"deleted"`
}

type AddHistoryRequest struct {
	Name string `json:"name"`
}

type Handler struct {
	repo    clientsRepo
	metrics *metrics.Manager
}

func NewHandler(repo clientsRepo, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:    repo,
		metrics: metricsManager,
	}
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.clients.list")
	defer span.End()

	clients := handler.repo.List(ctx, r.URL.Query().Get("q"))
	if clients == nil {
		clients = []Client{}
	}

	pkg.WriteJSON(w, ClientsListResponse{
		Clients: clients,
		Total:   len(clients),
	}, http.StatusOK)
}

func (handler *Handler) HandleFind(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.clients.find")
	defer span.End()

	name := r.URL.Query().Get("name")
	if strings.TrimSpace(name) == "" {
		http.Error(w, "error, name empty", http.StatusBadRequest)
		return
	}

	client, err := handler.repo.FindByName(ctx, name)
	if err != nil {
		handler.writeRepoError(w, "find client by name", err)
		return
	}

	pkg.WriteJSON(w, client, http.StatusOK)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.clients.get")
	defer span.End()

	id := mux.Vars(r)["id"]
	client, err := handler.repo.Get(ctx, id)
	if err != nil {
		handler.writeRepoError(w, "get client", err)
		return
	}

	pkg.WriteJSON(w, client, http.StatusOK)
}

func (handler *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.clients.create")
	defer span.End()

	form, ok := handler.decodeForm(w, r)
	if !ok {
		return
	}
	// ids are never taken from the request on create
	form.ID = ""

	client, _, err := handler.repo.CreateOrUpdate(ctx, form.ToClient())
	if err != nil {
		handler.writeRepoError(w, "create client", err)
		return
	}

	log.Debugf("new client added: [%s] %s", client.ID, client.FullName)
	pkg.WriteJSON(w, client, http.StatusCreated)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "PUT, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.clients.update")
	defer span.End()

	form, ok := handler.decodeForm(w, r)
	if !ok {
		return
	}
	form.ID = mux.Vars(r)["id"]

	client, _, err := handler.repo.CreateOrUpdate(ctx, form.ToClient())
	if err != nil {
		handler.writeRepoError(w, "update client", err)
		return
	}

	pkg.WriteJSON(w, client, http.StatusOK)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.clients.delete")
	defer span.End()

	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	deleted, err := handler.repo.Delete(ctx, id)
	if err != nil {
		handler.writeRepoError(w, "delete client", err)
		return
	}

	pkg.WriteJSON(w, DeleteClientResponse{
		DeletedID: id,
		Deleted:   deleted,
	}, http.StatusOK)
}

func (handler *Handler) HandleAddHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.clients.addHistory")
	defer span.End()

	var req AddHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("add history, unmarshal json params: %s", err)
		http.Error(w, "add history failed", http.StatusBadRequest)
		return
	}

	client, err := handler.repo.AppendHistory(ctx, mux.Vars(r)["id"], req.Name)
	if err != nil {
		handler.writeRepoError(w, "add history", err)
		return
	}

	pkg.WriteJSON(w, client, http.StatusOK)
}

func (handler *Handler) decodeForm(w http.ResponseWriter, r *http.Request) (ClientForm, bool) {
	if mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mediaType != pkg.ContentType.JSON {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return ClientForm{}, false
	}

	var form ClientForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		log.Errorf("client form, unmarshal json params: %s", err)
		http.Error(w, "invalid client data", http.StatusBadRequest)
		return ClientForm{}, false
	}

	if err := Validate(form); err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			if handler.metrics != nil {
				handler.metrics.CounterValidationFailures.WithLabelValues(validationErr.Rule).Inc()
			}
			pkg.WriteJSON(w, validationErr, http.StatusBadRequest)
			return ClientForm{}, false
		}
		http.Error(w, "invalid client data", http.StatusBadRequest)
		return ClientForm{}, false
	}

	return form, true
}

func (handler *Handler) writeRepoError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, ErrClientNotFound) {
		http.Error(w, "error, client not found", http.StatusNotFound)
		return
	}
	log.Errorf("%s: %s", op, err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
