// Package progress fetches a user's achievements from the remote achievement
// procedure and normalizes the loosely typed response.
package progress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
)

// DefaultProcedure is the remote procedure that computes achievements.
const DefaultProcedure = "get_user_achievements"

// Achievement is one normalized achievement. Target and CurrentProgress stay
// strings because the wire carries them as numbers or strings.
type Achievement struct {
	ID                 string     `json:"id" validate:"required"`
	Name               string     `json:"name" validate:"required"`
	Category           string     `json:"category"`
	Target             string     `json:"target" validate:"required"`
	CurrentProgress    string     `json:"currentProgress" validate:"required"`
	ProgressPercentage float64    `json:"progressPercentage" validate:"gte=0,lte=100"`
	UnlockedAt         *time.Time `json:"unlockedAt"`
}

// Unlocked reports whether the achievement has been earned.
func (a Achievement) Unlocked() bool {
	return a.UnlockedAt != nil
}

// errMalformed marks a response that cannot be trusted as a whole.
var errMalformed = errors.New("malformed achievement record")

// Aggregator fetches achievements. It keeps nothing between calls.
type Aggregator struct {
	caller    Caller
	procedure string
	log       logrus.FieldLogger
	validate  *validator.Validate
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithProcedure overrides the remote procedure name.
func WithProcedure(name string) Option {
	return func(a *Aggregator) {
		if name != "" {
			a.procedure = name
		}
	}
}

// WithLogger sets the logger degraded calls are reported to.
func WithLogger(log logrus.FieldLogger) Option {
	return func(a *Aggregator) { a.log = log }
}

// NewAggregator returns an Aggregator calling through caller.
func NewAggregator(caller Caller, opts ...Option) *Aggregator {
	a := &Aggregator{
		caller:    caller,
		procedure: DefaultProcedure,
		log:       logrus.StandardLogger(),
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// FetchAchievements returns the user's achievements. It never fails: an empty
// userID, a failed call or any malformed record all yield an empty list.
func (a *Aggregator) FetchAchievements(ctx context.Context, userID string) []Achievement {
	if userID == "" {
		return []Achievement{}
	}
	log := a.log.WithFields(logrus.Fields{"user_id": userID, "procedure": a.procedure})

	data, err := a.caller.Call(ctx, a.procedure, map[string]any{"user_id": userID})
	if err != nil {
		log.WithError(err).Warn("fetch achievements")
		return []Achievement{}
	}

	out, err := a.Normalize(data)
	if err != nil {
		log.WithError(err).Warn("discarding achievements response")
		return []Achievement{}
	}
	return out
}

// Normalize converts a raw response into achievements, all or nothing.
func (a *Aggregator) Normalize(data []byte) ([]Achievement, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: response is not an array of records: %v", errMalformed, err)
	}

	out := make([]Achievement, 0, len(records))
	for i, rec := range records {
		ach, err := a.normalizeRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, ach)
	}
	return out, nil
}

func (a *Aggregator) normalizeRecord(rec map[string]any) (Achievement, error) {
	if rec == nil {
		return Achievement{}, fmt.Errorf("%w: null record", errMalformed)
	}

	var (
		ach  Achievement
		errs []error
	)
	str := func(field string, required bool) string {
		v, ok := rec[field]
		if !ok || v == nil {
			if required {
				errs = append(errs, fmt.Errorf("missing %s", field))
			}
			return ""
		}
		s, err := scalarString(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
		}
		return s
	}

	ach.ID = str("id", true)
	ach.Name = str("name", true)
	ach.Category = str("category", false)
	ach.Target = str("target", true)
	ach.CurrentProgress = str("current_progress", true)

	if v, ok := rec["progress_percentage"]; !ok || v == nil {
		errs = append(errs, errors.New("missing progress_percentage"))
	} else if _, isBool := v.(bool); isBool {
		errs = append(errs, errors.New("progress_percentage: not a number"))
	} else if pct, err := cast.ToFloat64E(v); err != nil || v == "" {
		errs = append(errs, fmt.Errorf("progress_percentage: not a number: %v", v))
	} else {
		ach.ProgressPercentage = pct
	}

	if v, ok := rec["unlocked_at"]; ok && v != nil {
		s, isString := v.(string)
		t, err := time.Parse(time.RFC3339Nano, s)
		if !isString || err != nil {
			errs = append(errs, fmt.Errorf("unlocked_at: not a timestamp: %v", v))
		} else {
			ach.UnlockedAt = &t
		}
	}

	if len(errs) > 0 {
		return Achievement{}, fmt.Errorf("%w: %w", errMalformed, errors.Join(errs...))
	}
	if err := a.validate.Struct(ach); err != nil {
		return Achievement{}, fmt.Errorf("%w: %w", errMalformed, err)
	}
	return ach, nil
}

// scalarString accepts strings and numbers only.
func scalarString(v any) (string, error) {
	switch v.(type) {
	case string, json.Number, float64:
		return cast.ToStringE(v)
	default:
		return "", fmt.Errorf("unsupported value %v", v)
	}
}
