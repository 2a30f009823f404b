package clients

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	GoalWeightLoss       = "Weight Loss"
	GoalMuscleGain       = "Muscle Gain"
	GoalGeneralFitness   = "General Fitness"
	GoalFlexibility      = "Flexibility"
	GoalStrengthTraining = "Strength Training"
	GoalEndurance        = "Endurance"
	GoalCardio           = "Cardio"
	GoalOther            = "Other"
)

// Goals lists the fitness goals in the order the form offers them.
var Goals = []string{
	GoalWeightLoss,
	GoalMuscleGain,
	GoalGeneralFitness,
	GoalFlexibility,
	GoalStrengthTraining,
	GoalEndurance,
	GoalCardio,
	GoalOther,
}

func IsKnownGoal(goal string) bool {
	for _, g := range Goals {
		if g == goal {
			return true
		}
	}
	return false
}

type Client struct {
	ID              string         `json:"id"`
	FullName        string         `json:"fullname"`
	Age             int            `json:"age"`
	Gender          string         `json:"gender"`
	Email           string         `json:"email"`
	Phone           string         `json:"phone"`
	Goal            string         `json:"goal"`
	GoalOther       string         `json:"goal_other"`
	StartDate       string         `json:"start_date"`
	TrainingHistory []HistoryEntry `json:"training_history"`
}

// GoalLabel is the goal as shown to the trainer: the free-text goal for "Other".
func (c *Client) GoalLabel() string {
	if c.Goal == GoalOther {
		if c.GoalOther == "" {
			return GoalOther
		}
		return c.GoalOther
	}
	return c.Goal
}

// HistoryLines renders every history entry, most recent first.
func (c *Client) HistoryLines() []string {
	lines := make([]string, 0, len(c.TrainingHistory))
	for _, e := range c.TrainingHistory {
		lines = append(lines, e.String())
	}
	return lines
}

func (c *Client) normalize() {
	if c.TrainingHistory == nil {
		c.TrainingHistory = []HistoryEntry{}
	}
}

// HistoryEntry is either a plain text line ("2025-01-01: Push-up") or a
// structured {date, name} record. It is written back in the form it was read in.
// Any other JSON value is kept verbatim and rendered as its raw JSON.
// Entries decoded from JSON are re-encoded byte for byte.
type HistoryEntry struct {
	Text string
	Date string
	Name string

	structured bool
	raw        json.RawMessage
}

func NewTextEntry(text string) HistoryEntry {
	return HistoryEntry{Text: text}
}

func NewStructuredEntry(date, name string) HistoryEntry {
	return HistoryEntry{Date: date, Name: name, structured: true}
}

func (e HistoryEntry) IsStructured() bool {
	return e.structured
}

// String renders both entry forms the same way: "<date>: <name>".
func (e HistoryEntry) String() string {
	if e.structured {
		if e.Date == "" {
			return e.Name
		}
		return fmt.Sprintf("%s: %s", e.Date, e.Name)
	}
	if e.raw != nil {
		return string(e.raw)
	}
	return e.Text
}

type structuredEntry struct {
	Date string `json:"date,omitempty"`
	Name string `json:"name"`
}

func (e HistoryEntry) MarshalJSON() ([]byte, error) {
	if e.raw != nil {
		return e.raw, nil
	}
	if e.structured {
		return json.Marshal(structuredEntry{Date: e.Date, Name: e.Name})
	}
	return json.Marshal(e.Text)
}

func (e *HistoryEntry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("empty history entry")
	}

	switch data[0] {
	case '"':
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*e = NewTextEntry(text)
		return nil
	case '{':
		var se structuredEntry
		if err := json.Unmarshal(data, &se); err == nil {
			*e = NewStructuredEntry(se.Date, se.Name)
			// keep the original object, so unknown keys survive a save
			raw, err := compactRaw(data)
			if err != nil {
				return err
			}
			e.raw = raw
			return nil
		}
		// an object of unexpected shape is kept verbatim
		raw, err := compactRaw(data)
		if err != nil {
			return err
		}
		*e = HistoryEntry{raw: raw}
		return nil
	default:
		raw, err := compactRaw(data)
		if err != nil {
			return fmt.Errorf("invalid history entry: %w", err)
		}
		*e = HistoryEntry{raw: raw}
		return nil
	}
}

func compactRaw(data []byte) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return nil, err
	}
	return json.RawMessage(buf.Bytes()), nil
}

// nameMatches reports whether the client name contains the (already lowercased) query.
func nameMatches(c *Client, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(c.FullName), lowerQuery)
}
