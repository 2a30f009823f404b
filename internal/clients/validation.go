package clients

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	RuleRequired         = "required"
	RuleAgeFormat        = "age_format"
	RuleDateFormat       = "date_format"
	RuleNameFormat       = "name_format"
	RuleEmailFormat      = "email_format"
	RulePhoneFormat      = "phone_format"
	RuleGoalUnknown      = "goal_unknown"
	RuleGoalOtherMissing = "goal_other_missing"
)

const startDateLayout = "2006-01-02"

var (
	nameRegex  = regexp.MustCompile(`^[A-Za-z\s]+$`)
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRegex = regexp.MustCompile(`^[0-9]{11}$`)
)

// ValidationError carries the first rule a submitted form violated.
type ValidationError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s (%s): %s", e.Field, e.Rule, e.Message)
}

// ClientForm is a client as the trainer typed it, every field still a string.
type ClientForm struct {
	ID        string `json:"id"`
	FullName  string `json:"fullname"`
	Age       string `json:"age"`
	Gender    string `json:"gender"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Goal      string `json:"goal"`
	GoalOther string `json:"goal_other"`
	StartDate string `json:"start_date"`
}

func FormFromClient(c *Client) ClientForm {
	age := ""
	if c.Age > 0 {
		age = strconv.Itoa(c.Age)
	}
	return ClientForm{
		ID:        c.ID,
		FullName:  c.FullName,
		Age:       age,
		Gender:    c.Gender,
		Email:     c.Email,
		Phone:     c.Phone,
		Goal:      c.Goal,
		GoalOther: c.GoalOther,
		StartDate: c.StartDate,
	}
}

func (f ClientForm) trimmed() ClientForm {
	return ClientForm{
		ID:        strings.TrimSpace(f.ID),
		FullName:  strings.TrimSpace(f.FullName),
		Age:       strings.TrimSpace(f.Age),
		Gender:    strings.TrimSpace(f.Gender),
		Email:     strings.TrimSpace(f.Email),
		Phone:     strings.TrimSpace(f.Phone),
		Goal:      strings.TrimSpace(f.Goal),
		GoalOther: strings.TrimSpace(f.GoalOther),
		StartDate: strings.TrimSpace(f.StartDate),
	}
}

// Validate returns nil or the first *ValidationError, checking rules in a fixed order.
func Validate(form ClientForm) error {
	f := form.trimmed()

	required := []struct {
		field string
		value string
	}{
		{"fullname", f.FullName},
		{"age", f.Age},
		{"gender", f.Gender},
		{"email", f.Email},
		{"phone", f.Phone},
		{"goal", f.Goal},
		{"start_date", f.StartDate},
	}
	for _, r := range required {
		if r.value == "" {
			return &ValidationError{
				Field:   r.field,
				Rule:    RuleRequired,
				Message: "Please fill in all required fields.",
			}
		}
	}

	if age, err := strconv.Atoi(f.Age); err != nil || age <= 0 {
		return &ValidationError{Field: "age", Rule: RuleAgeFormat, Message: "Please enter a valid age."}
	}
	if _, err := time.Parse(startDateLayout, f.StartDate); err != nil {
		return &ValidationError{Field: "start_date", Rule: RuleDateFormat, Message: "Please enter a valid start date."}
	}
	if !nameRegex.MatchString(f.FullName) {
		return &ValidationError{Field: "fullname", Rule: RuleNameFormat, Message: "Please enter a valid name (letters only)."}
	}
	if !emailRegex.MatchString(f.Email) {
		return &ValidationError{Field: "email", Rule: RuleEmailFormat, Message: "Please enter a valid email address."}
	}
	if !phoneRegex.MatchString(f.Phone) {
		return &ValidationError{Field: "phone", Rule: RulePhoneFormat, Message: "Please enter a valid phone number (11 digits)."}
	}
	if !IsKnownGoal(f.Goal) {
		return &ValidationError{Field: "goal", Rule: RuleGoalUnknown, Message: "Please select a fitness goal."}
	}
	if f.Goal == GoalOther && f.GoalOther == "" {
		return &ValidationError{Field: "goal_other", Rule: RuleGoalOtherMissing, Message: `Please provide the "Other" fitness goal text.`}
	}

	return nil
}

// ToClient converts an already validated form. History is left nil so an update keeps
// the stored history.
func (f ClientForm) ToClient() Client {
	t := f.trimmed()
	age, _ := strconv.Atoi(t.Age)
	return Client{
		ID:        t.ID,
		FullName:  t.FullName,
		Age:       age,
		Gender:    t.Gender,
		Email:     t.Email,
		Phone:     t.Phone,
		Goal:      t.Goal,
		GoalOther: t.GoalOther,
		StartDate: t.StartDate,
	}
}
