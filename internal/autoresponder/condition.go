// Package autoresponder evaluates auto-response rules against submissions.
package autoresponder

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Condition is one of Always, ContainsKeyword, EmailDomain or TimeOfDay.
type Condition interface {
	Kind() string
	isCondition()
}

type Always struct{}

type ContainsKeyword struct {
	Keyword string `json:"keyword"`
}

type EmailDomain struct {
	Domain string `json:"domain"`
}

// TimeOfDay matches when StartHour <= hour <= EndHour.
type TimeOfDay struct {
	StartHour int `json:"startHour"`
	EndHour   int `json:"endHour"`
}

func (Always) Kind() string          { return "always" }
func (ContainsKeyword) Kind() string { return "contains_keyword" }
func (EmailDomain) Kind() string     { return "email_domain" }
func (TimeOfDay) Kind() string       { return "time_of_day" }

func (Always) isCondition()          {}
func (ContainsKeyword) isCondition() {}
func (EmailDomain) isCondition()     {}
func (TimeOfDay) isCondition()       {}

// Input is the data a condition is evaluated against. At is already in the
// configured zone.
type Input struct {
	Email   string
	Message string
	At      time.Time
}

// Matches evaluates c. A nil condition never matches.
func Matches(c Condition, in Input) bool {
	switch c := c.(type) {
	case Always:
		return true
	case ContainsKeyword:
		if c.Keyword == "" {
			return false
		}
		return strings.Contains(strings.ToLower(in.Message), strings.ToLower(c.Keyword))
	case EmailDomain:
		if c.Domain == "" {
			return false
		}
		return strings.HasSuffix(strings.ToLower(in.Email), strings.ToLower(c.Domain))
	case TimeOfDay:
		hour := in.At.Hour()
		return hour >= c.StartHour && hour <= c.EndHour
	default:
		return false
	}
}

var (
	ErrUnknownCondition = errors.New("unknown condition")
	ErrInvalidCondition = errors.New("invalid condition")
)

// Validate checks the parameters of c.
func Validate(c Condition) error {
	switch c := c.(type) {
	case Always:
		return nil
	case ContainsKeyword:
		if strings.TrimSpace(c.Keyword) == "" {
			return fmt.Errorf("%w: keyword is required", ErrInvalidCondition)
		}
	case EmailDomain:
		if strings.TrimSpace(c.Domain) == "" {
			return fmt.Errorf("%w: domain is required", ErrInvalidCondition)
		}
	case TimeOfDay:
		if c.StartHour < 0 || c.StartHour > 23 || c.EndHour < 0 || c.EndHour > 23 {
			return fmt.Errorf("%w: hours must be between 0 and 23", ErrInvalidCondition)
		}
		if c.StartHour > c.EndHour {
			return fmt.Errorf("%w: start hour after end hour", ErrInvalidCondition)
		}
	default:
		return ErrUnknownCondition
	}
	return nil
}

// Encode returns the kind tag and JSON parameters for storage.
func Encode(c Condition) (string, string, error) {
	if c == nil {
		return "", "", ErrUnknownCondition
	}
	params, err := json.Marshal(c)
	if err != nil {
		return "", "", err
	}
	return c.Kind(), string(params), nil
}

// Decode rebuilds a condition from its kind tag and JSON parameters.
func Decode(kind, params string) (Condition, error) {
	if params == "" {
		params = "{}"
	}
	switch kind {
	case "always":
		return Always{}, nil
	case "contains_keyword":
		var c ContainsKeyword
		if err := json.Unmarshal([]byte(params), &c); err != nil {
			return nil, err
		}
		return c, nil
	case "email_domain":
		var c EmailDomain
		if err := json.Unmarshal([]byte(params), &c); err != nil {
			return nil, err
		}
		return c, nil
	case "time_of_day":
		var c TimeOfDay
		if err := json.Unmarshal([]byte(params), &c); err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCondition, kind)
	}
}
