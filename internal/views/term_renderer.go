package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2B4162"))
	labelStyle   = lipgloss.NewStyle().Bold(true)
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#B26A00"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C62828"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#BDBDBD")).
			Padding(0, 1)
)

// TermRenderer draws pages for a terminal.
type TermRenderer struct{}

func NewTermRenderer() *TermRenderer {
	return &TermRenderer{}
}

func (r *TermRenderer) Render(page Page) string {
	switch {
	case page.Form != nil:
		return r.form(page.Form)
	case page.List != nil:
		return r.list(page.List)
	case page.Detail != nil:
		return r.detail(page.Detail)
	default:
		return ""
	}
}

func (r *TermRenderer) form(v *FormView) string {
	var lines []string
	if v.Editing {
		lines = append(lines, titleStyle.Render("Edit Client"))
	} else {
		lines = append(lines, titleStyle.Render("Add Client"))
	}
	if v.Error != "" {
		lines = append(lines, errorStyle.Render(v.Error))
	}

	fields := [][2]string{
		{"Full name", v.Values.FullName},
		{"Age", v.Values.Age},
		{"Gender", v.Values.Gender},
		{"Email", v.Values.Email},
		{"Phone", v.Values.Phone},
		{"Fitness goal", v.Values.Goal},
		{"Other goal", v.Values.GoalOther},
		{"Start date", v.Values.StartDate},
	}
	for _, f := range fields {
		lines = append(lines, labelStyle.Render(f[0]+":")+" "+f[1])
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (r *TermRenderer) list(v *ListView) string {
	var lines []string
	lines = append(lines, titleStyle.Render("Client List"))
	if v.Notice != "" {
		lines = append(lines, noticeStyle.Render(v.Notice))
	}
	if len(v.Rows) == 0 {
		lines = append(lines, mutedStyle.Render(v.EmptyMessage))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	cols := []string{"ID", "Name", "Email", "Phone", "Fitness Goal", "Start Date"}
	cells := make([][]string, 0, len(v.Rows))
	for _, row := range v.Rows {
		cells = append(cells, []string{row.ID, row.FullName, row.Email, row.Phone, row.GoalLabel, row.StartDate})
	}

	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = lipgloss.Width(c)
	}
	for _, row := range cells {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = headerStyle.Render(pad(c, widths[i]))
	}
	lines = append(lines, strings.Join(header, "  "))
	for _, row := range cells {
		padded := make([]string, len(row))
		for i, cell := range row {
			padded[i] = pad(cell, widths[i])
		}
		lines = append(lines, strings.Join(padded, "  "))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (r *TermRenderer) detail(v *DetailView) string {
	var lines []string
	if v.Notice != "" {
		lines = append(lines, noticeStyle.Render(v.Notice))
	}
	lines = append(lines, titleStyle.Render(v.FullName))

	info := []string{
		labelStyle.Render("Email:") + " " + v.Email,
		labelStyle.Render("Phone:") + " " + v.Phone,
		labelStyle.Render("Fitness Goal:") + " " + v.GoalLabel,
		labelStyle.Render("Membership Start Date:") + " " + v.StartDate,
		labelStyle.Render("Age:") + " " + v.Age,
		labelStyle.Render("Gender:") + " " + v.Gender,
	}
	lines = append(lines, sectionStyle.Render(strings.Join(info, "\n")))

	lines = append(lines, headerStyle.Render("Training History"))
	if len(v.History) == 0 {
		lines = append(lines, mutedStyle.Render(v.HistoryMessage))
	}
	for _, h := range v.History {
		lines = append(lines, "• "+h)
	}

	if len(v.Suggestions) > 0 || v.SuggestionsNotice != "" {
		lines = append(lines, headerStyle.Render("Exercises for Next Session"))
		if v.SuggestionsNotice != "" {
			lines = append(lines, noticeStyle.Render(v.SuggestionsNotice))
		}
		for i, s := range v.Suggestions {
			line := fmt.Sprintf("%d. %s", i+1, labelStyle.Render(s.Name))
			if s.Summary != "" {
				line += " " + mutedStyle.Render("- "+s.Summary)
			}
			lines = append(lines, line)
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func pad(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}
