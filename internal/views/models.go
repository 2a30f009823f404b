package views

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/fitcrm/internal/clients"
	"github.com/2beens/fitcrm/internal/exercises"
)

const (
	NoClientsMessage     = "No clients found."
	NoHistoryMessage     = "No training history."
	NoExercisesMessage   = "No exercises available right now."
	NoExactMatchNotice   = "No exact match found. Showing filtered results."
	FallbackNotice       = "Couldn't fetch exercises from Wger. Showing local suggestions."
	LoadingNotice        = "Loading suggested exercises…"
	ClientNotFoundNotice = "Client not found."
	ClientAddedNotice    = "Client added successfully."
	ClientUpdatedNotice  = "Client updated successfully."
	ClientDeletedNotice  = "Client deleted."
)

type FormView struct {
	Values  clients.ClientForm
	Editing bool
	// Error is the message of the first failed validation rule, ErrorField its field.
	Error      string
	ErrorField string
	Goals      []string
}

type ListRow struct {
	ID        string
	FullName  string
	Email     string
	Phone     string
	GoalLabel string
	StartDate string
}

type ListView struct {
	Query        string
	Rows         []ListRow
	Notice       string
	EmptyMessage string
}

type SuggestionRow struct {
	Name    string
	Summary string
}

type DetailView struct {
	ClientID  string
	FullName  string
	Email     string
	Phone     string
	GoalLabel string
	StartDate string
	Age       string
	Gender    string

	History        []string
	HistoryMessage string

	Suggestions       []SuggestionRow
	SuggestionsSource exercises.Source
	SuggestionsNotice string

	Notice string
}

type clientsReader interface {
	Get(ctx context.Context, id string) (*clients.Client, error)
	List(ctx context.Context, query string) []clients.Client
}

type suggester interface {
	Suggest(ctx context.Context, count int) ([]exercises.Suggestion, exercises.Source)
}

// Presenter builds the view models out of the repository and the exercise provider.
type Presenter struct {
	repo             clientsReader
	suggester        suggester
	suggestionsCount int
}

// NewPresenter builds a presenter. A nil suggester leaves detail views without suggestions.
func NewPresenter(repo clientsReader, suggester suggester, suggestionsCount int) *Presenter {
	return &Presenter{
		repo:             repo,
		suggester:        suggester,
		suggestionsCount: suggestionsCount,
	}
}

func (p *Presenter) Form(values clients.ClientForm, err error) FormView {
	v := FormView{
		Values:  values,
		Editing: values.ID != "",
		Goals:   clients.Goals,
	}

	var validationErr *clients.ValidationError
	if errors.As(err, &validationErr) {
		v.Error = validationErr.Message
		v.ErrorField = validationErr.Field
	} else if err != nil {
		v.Error = err.Error()
	}

	return v
}

func (p *Presenter) List(ctx context.Context, query, notice string) ListView {
	found := p.repo.List(ctx, query)

	v := ListView{
		Query:  query,
		Notice: notice,
		Rows:   make([]ListRow, 0, len(found)),
	}
	for i := range found {
		c := &found[i]
		v.Rows = append(v.Rows, ListRow{
			ID:        c.ID,
			FullName:  c.FullName,
			Email:     c.Email,
			Phone:     c.Phone,
			GoalLabel: c.GoalLabel(),
			StartDate: c.StartDate,
		})
	}
	if len(v.Rows) == 0 {
		v.EmptyMessage = NoClientsMessage
	}

	return v
}

// Detail builds the detail view of the client with the given id, suggestions included.
func (p *Presenter) Detail(ctx context.Context, id, notice string) (DetailView, error) {
	c, err := p.repo.Get(ctx, id)
	if err != nil {
		return DetailView{}, fmt.Errorf("get client [%s]: %w", id, err)
	}

	age := ""
	if c.Age > 0 {
		age = fmt.Sprintf("%d", c.Age)
	}

	v := DetailView{
		ClientID:  c.ID,
		FullName:  c.FullName,
		Email:     c.Email,
		Phone:     c.Phone,
		GoalLabel: c.GoalLabel(),
		StartDate: c.StartDate,
		Age:       age,
		Gender:    c.Gender,
		History:   c.HistoryLines(),
		Notice:    notice,
	}
	if len(v.History) == 0 {
		v.HistoryMessage = NoHistoryMessage
	}

	if p.suggester == nil {
		return v, nil
	}

	suggestions, source := p.suggester.Suggest(ctx, p.suggestionsCount)
	v.SuggestionsSource = source
	for _, s := range suggestions {
		v.Suggestions = append(v.Suggestions, SuggestionRow{
			Name:    s.Name,
			Summary: s.Summary(),
		})
	}
	switch {
	case len(v.Suggestions) == 0:
		v.SuggestionsNotice = NoExercisesMessage
	case source == exercises.SourceFallback:
		v.SuggestionsNotice = FallbackNotice
	}

	return v, nil
}

func HistoryAddedNotice(exerciseName, clientName string) string {
	return fmt.Sprintf("Added %q to %s's training history.", exerciseName, clientName)
}
