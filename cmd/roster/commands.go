package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/2beens/fitcrm/internal/clients"
	"github.com/2beens/fitcrm/internal/exercises"
	"github.com/2beens/fitcrm/internal/views"

	"github.com/spf13/cobra"
)

func newListCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [query]",
		Short: "List clients, optionally filtered by a name fragment",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			a.show(a.nav.ShowList(a.presenter.List(cmd.Context(), query, "")))
			return nil
		},
	}
}

// find is the exact name search: on a miss it falls back to the filtered list.
func newFindCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "find <full name>",
		Short: "Open the client with exactly this name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			ctx := cmd.Context()
			name := strings.Join(args, " ")

			c, err := a.repo.FindByName(ctx, name)
			if errors.Is(err, clients.ErrClientNotFound) {
				a.show(a.nav.ShowList(a.presenter.List(ctx, name, views.NoExactMatchNotice)))
				return nil
			}
			if err != nil {
				return err
			}
			return showDetail(cmd, a, c.ID, "")
		},
	}
}

func newShowCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a client with training history and suggested exercises",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showDetail(cmd, getApp(), args[0], "")
		},
	}
}

func showDetail(cmd *cobra.Command, a *app, id, notice string) error {
	_, _ = fmt.Fprintln(a.out, views.LoadingNotice)
	detail, err := a.presenter.Detail(cmd.Context(), id, notice)
	if errors.Is(err, clients.ErrClientNotFound) {
		return errors.New(views.ClientNotFoundNotice)
	}
	if err != nil {
		return err
	}
	a.show(a.nav.ShowDetail(detail))
	return nil
}

func bindFormFlags(cmd *cobra.Command, form *clients.ClientForm) {
	cmd.Flags().StringVar(&form.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&form.Age, "age", "", "age in years")
	cmd.Flags().StringVar(&form.Gender, "gender", "", "gender")
	cmd.Flags().StringVar(&form.Email, "email", "", "email address")
	cmd.Flags().StringVar(&form.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&form.Goal, "goal", "", "fitness goal ["+strings.Join(clients.Goals, " | ")+"]")
	cmd.Flags().StringVar(&form.GoalOther, "goal-other", "", "goal description when --goal is Other")
	cmd.Flags().StringVar(&form.StartDate, "start-date", "", "membership start date, YYYY-MM-DD")
}

func submitForm(cmd *cobra.Command, a *app, form clients.ClientForm) error {
	if err := clients.Validate(form); err != nil {
		a.show(a.nav.ShowForm(a.presenter.Form(form, err)))
		return err
	}

	saved, created, err := a.repo.CreateOrUpdate(cmd.Context(), form.ToClient())
	if err != nil {
		return err
	}

	notice := views.ClientUpdatedNotice
	if created {
		notice = views.ClientAddedNotice
	}
	a.show(a.nav.ShowList(a.presenter.List(cmd.Context(), "", notice)))
	_, _ = fmt.Fprintf(a.out, "id: %s\n", saved.ID)
	return nil
}

func newAddCmd(getApp func() *app) *cobra.Command {
	form := clients.ClientForm{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a new client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			form.ID = ""
			return submitForm(cmd, getApp(), form)
		},
	}
	bindFormFlags(cmd, &form)
	return cmd
}

// edit starts from the stored values and overrides only the flags given.
func newEditCmd(getApp func() *app) *cobra.Command {
	changes := clients.ClientForm{}
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit an existing client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			existing, err := a.repo.Get(cmd.Context(), args[0])
			if errors.Is(err, clients.ErrClientNotFound) {
				return errors.New(views.ClientNotFoundNotice)
			}
			if err != nil {
				return err
			}

			form := clients.FormFromClient(existing)
			overrides := map[string]*string{
				"name":       &form.FullName,
				"age":        &form.Age,
				"gender":     &form.Gender,
				"email":      &form.Email,
				"phone":      &form.Phone,
				"goal":       &form.Goal,
				"goal-other": &form.GoalOther,
				"start-date": &form.StartDate,
			}
			for flagName, target := range overrides {
				if cmd.Flags().Changed(flagName) {
					*target = cmd.Flags().Lookup(flagName).Value.String()
				}
			}

			return submitForm(cmd, a, form)
		},
	}
	bindFormFlags(cmd, &changes)
	return cmd
}

func newDeleteCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			deleted, err := a.repo.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			notice := ""
			if deleted {
				notice = views.ClientDeletedNotice
			}
			a.show(a.nav.ShowList(a.presenter.List(cmd.Context(), "", notice)))
			return nil
		},
	}
}

func newHistoryCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history <id> <exercise name>",
		Short: "Add an exercise to the client's training history",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			name := strings.Join(args[1:], " ")
			c, err := a.repo.AppendHistory(cmd.Context(), args[0], name)
			if errors.Is(err, clients.ErrClientNotFound) {
				return errors.New(views.ClientNotFoundNotice)
			}
			if err != nil {
				return err
			}
			return showDetail(cmd, a, c.ID, views.HistoryAddedNotice(name, c.FullName))
		},
	}
}

func newSuggestCmd(getApp func() *app) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest exercises from the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			if !cmd.Flags().Changed("count") {
				count = a.cfg.SuggestionsCount
			}

			_, _ = fmt.Fprintln(a.out, views.LoadingNotice)
			suggestions, source := a.provider.Suggest(cmd.Context(), count)
			if len(suggestions) == 0 {
				_, _ = fmt.Fprintln(a.out, views.NoExercisesMessage)
				return nil
			}
			if source == exercises.SourceFallback {
				_, _ = fmt.Fprintln(a.out, views.FallbackNotice)
			}
			for i, s := range suggestions {
				_, _ = fmt.Fprintf(a.out, "%d. %s\n   %s\n", i+1, s.Name, s.Summary())
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "number of exercises (defaults to suggestions_count)")
	return cmd
}

func newSeedCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Fill an empty roster with the sample clients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			seeded, err := a.repo.SeedIfEmpty(cmd.Context())
			if err != nil {
				return err
			}
			if seeded == 0 {
				_, _ = fmt.Fprintln(a.out, "roster is not empty, nothing seeded")
				return nil
			}
			_, _ = fmt.Fprintf(a.out, "seeded %d sample clients\n", seeded)
			return nil
		},
	}
}
