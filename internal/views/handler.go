package views

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/2beens/fitcrm/internal/clients"
	"github.com/2beens/fitcrm/internal/telemetry/metrics"
	"github.com/2beens/fitcrm/internal/telemetry/tracing"
	"github.com/2beens/fitcrm/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type rosterRepo interface {
	Get(ctx context.Context, id string) (*clients.Client, error)
	List(ctx context.Context, query string) []clients.Client
	FindByName(ctx context.Context, name string) (*clients.Client, error)
	CreateOrUpdate(ctx context.Context, data clients.Client) (_ *clients.Client, created bool, err error)
	Delete(ctx context.Context, id string) (bool, error)
	AppendHistory(ctx context.Context, id, exerciseName string) (*clients.Client, error)
}

// list notices passed along a redirect
var listMessages = map[string]string{
	"added":   ClientAddedNotice,
	"updated": ClientUpdatedNotice,
	"deleted": ClientDeletedNotice,
}

// Handler serves the server-rendered trainer UI.
type Handler struct {
	repo      rosterRepo
	presenter *Presenter
	renderer  *HTMLRenderer
	metrics   *metrics.Manager
}

func NewHandler(
	repo rosterRepo,
	suggester suggester,
	suggestionsCount int,
	metricsManager *metrics.Manager,
) (*Handler, error) {
	renderer, err := NewHTMLRenderer()
	if err != nil {
		return nil, err
	}
	return &Handler{
		repo:      repo,
		presenter: NewPresenter(repo, suggester, suggestionsCount),
		renderer:  renderer,
		metrics:   metricsManager,
	}, nil
}

func (handler *Handler) HandleForm(w http.ResponseWriter, r *http.Request) {
	handler.render(w, FormPage(handler.presenter.Form(clients.ClientForm{}, nil)), http.StatusOK)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.views.list")
	defer span.End()

	query := r.URL.Query().Get("q")
	notice := listMessages[r.URL.Query().Get("msg")]

	handler.render(w, ListPage(handler.presenter.List(ctx, query, notice)), http.StatusOK)
}

// HandleSearch opens the client whose name matches exactly, or falls back to the filtered list.
func (handler *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.views.search")
	defer span.End()

	name := r.URL.Query().Get("name")

	found, err := handler.repo.FindByName(ctx, name)
	if err != nil {
		notice := ""
		if name != "" {
			notice = NoExactMatchNotice
		}
		handler.render(w, ListPage(handler.presenter.List(ctx, name, notice)), http.StatusOK)
		return
	}

	detail, err := handler.presenter.Detail(ctx, found.ID, "")
	if err != nil {
		handler.renderError(ctx, w, err)
		return
	}
	handler.render(w, DetailPage(detail), http.StatusOK)
}

func (handler *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.views.submit")
	defer span.End()

	if err := r.ParseForm(); err != nil {
		log.Errorf("submit client failed, parse form error: %s", err)
		http.Error(w, "parse form error", http.StatusBadRequest)
		return
	}

	form := clients.ClientForm{
		ID:        r.PostForm.Get("id"),
		FullName:  r.PostForm.Get("fullname"),
		Age:       r.PostForm.Get("age"),
		Gender:    r.PostForm.Get("gender"),
		Email:     r.PostForm.Get("email"),
		Phone:     r.PostForm.Get("phone"),
		Goal:      r.PostForm.Get("goal"),
		GoalOther: r.PostForm.Get("goal_other"),
		StartDate: r.PostForm.Get("start_date"),
	}

	if err := clients.Validate(form); err != nil {
		var validationErr *clients.ValidationError
		if errors.As(err, &validationErr) && handler.metrics != nil {
			handler.metrics.CounterValidationFailures.WithLabelValues(validationErr.Rule).Inc()
		}
		handler.render(w, FormPage(handler.presenter.Form(form, err)), http.StatusUnprocessableEntity)
		return
	}

	_, created, err := handler.repo.CreateOrUpdate(ctx, form.ToClient())
	if err != nil {
		handler.renderError(ctx, w, err)
		return
	}

	msg := "updated"
	if created {
		msg = "added"
	}
	http.Redirect(w, r, "/ui/clients?msg="+msg, http.StatusSeeOther)
}

func (handler *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.views.edit")
	defer span.End()

	client, err := handler.repo.Get(ctx, mux.Vars(r)["id"])
	if err != nil {
		handler.renderError(ctx, w, err)
		return
	}

	handler.render(w, FormPage(handler.presenter.Form(clients.FormFromClient(client), nil)), http.StatusOK)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.views.delete")
	defer span.End()

	deleted, err := handler.repo.Delete(ctx, mux.Vars(r)["id"])
	if err != nil {
		handler.renderError(ctx, w, err)
		return
	}

	target := "/ui/clients"
	if deleted {
		target += "?msg=deleted"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (handler *Handler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.views.detail")
	defer span.End()

	detail, err := handler.presenter.Detail(ctx, mux.Vars(r)["id"], "")
	if err != nil {
		handler.renderError(ctx, w, err)
		return
	}
	if added := r.URL.Query().Get("added"); added != "" {
		detail.Notice = HistoryAddedNotice(added, detail.FullName)
	}

	handler.render(w, DetailPage(detail), http.StatusOK)
}

// HandleAddHistory adds the picked exercise to the client the detail page was rendered for.
func (handler *Handler) HandleAddHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.views.addHistory")
	defer span.End()

	if err := r.ParseForm(); err != nil {
		log.Errorf("add exercise failed, parse form error: %s", err)
		http.Error(w, "parse form error", http.StatusBadRequest)
		return
	}

	id := mux.Vars(r)["id"]
	name := r.PostForm.Get("name")
	if _, err := handler.repo.AppendHistory(ctx, id, name); err != nil {
		handler.renderError(ctx, w, err)
		return
	}

	if strings.TrimSpace(name) == "" {
		name = "Unnamed exercise"
	}
	http.Redirect(w, r, "/ui/clients/"+url.PathEscape(id)+"?added="+url.QueryEscape(name), http.StatusSeeOther)
}

func (handler *Handler) renderError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, clients.ErrClientNotFound) {
		handler.render(w, ListPage(handler.presenter.List(ctx, "", ClientNotFoundNotice)), http.StatusNotFound)
		return
	}
	log.Errorf("roster ui: %s", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func (handler *Handler) render(w http.ResponseWriter, page Page, status int) {
	var buf bytes.Buffer
	if err := handler.renderer.Render(&buf, page); err != nil {
		log.Errorf("render %s page: %s", page.State, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.HTML, buf.Bytes(), status)
}
