package exercises

import (
	"context"
	"net/http"
	"strconv"

	"github.com/2beens/fitcrm/internal/telemetry/tracing"
	"github.com/2beens/fitcrm/pkg"

	log "github.com/sirupsen/logrus"
)

const maxSuggestionsCount = 50

//go:generate mockgen -source=$GOFILE -destination=suggester_mocks_test.go -package=exercises_test

type suggester interface {
	Suggest(ctx context.Context, count int) ([]Suggestion, Source)
}

type SuggestionsResponse struct {
	Exercises []Suggestion `json:"exercises"`
	Source    Source       `json:"source"`
}

type Handler struct {
	suggester    suggester
	defaultCount int
}

func NewHandler(suggester suggester, defaultCount int) *Handler {
	return &Handler{
		suggester:    suggester,
		defaultCount: defaultCount,
	}
}

func (handler *Handler) HandleSuggestions(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.suggestions")
	defer span.End()

	count := handler.defaultCount
	if countStr := r.URL.Query().Get("count"); countStr != "" {
		parsed, err := strconv.Atoi(countStr)
		if err != nil || parsed < 0 || parsed > maxSuggestionsCount {
			log.Tracef("invalid suggestions count: %s", countStr)
			http.Error(w, "error, invalid count", http.StatusBadRequest)
			return
		}
		count = parsed
	}

	suggestions, source := handler.suggester.Suggest(ctx, count)
	pkg.WriteJSON(w, SuggestionsResponse{
		Exercises: suggestions,
		Source:    source,
	}, http.StatusOK)
}
