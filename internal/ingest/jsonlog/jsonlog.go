// Package jsonlog loads the exchanged JSON form of a session collection:
// an array of {date, exercises[{name, sets[{set, reps}], weight, muscle}]}.
// Input is validated against a JSON schema first and rejected as a whole on
// any violation; nothing is partially ingested. A session's date and
// exercises may be missing or null: an undated session is a data problem
// reported during normalization, not a malformed upload.
package jsonlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/claude/liftlog/internal/ingest"
	"github.com/claude/liftlog/internal/models"
	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidInput marks input that is not a valid session array.
var ErrInvalidInput = errors.New("invalid session JSON")

// ValidationError lists every schema violation found in the input.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidInput, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

const sessionSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "properties": {
      "date": {"type": ["string", "null"]},
      "exercises": {
        "type": ["array", "null"],
        "items": {
          "type": "object",
          "required": ["name", "sets"],
          "properties": {
            "name": {"type": "string", "minLength": 1},
            "weight": {"type": ["string", "number", "null"]},
            "muscle": {"type": ["string", "null"]},
            "sets": {
              "type": "array",
              "items": {
                "type": "object",
                "properties": {
                  "set": {"type": ["integer", "string", "null"]},
                  "reps": {"type": ["number", "string", "null"]}
                }
              }
            }
          }
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(sessionSchema)

// Decode validates and decodes a session array.
func Decode(data []byte) ([]models.Session, error) {
	if !json.Valid(data) {
		var probe any
		err := json.Unmarshal(data, &probe)
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !result.Valid() {
		verr := &ValidationError{}
		for _, e := range result.Errors() {
			verr.Problems = append(verr.Problems, e.String())
		}
		return nil, verr
	}

	var sessions []models.Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	return sessions, nil
}

// Encode writes sessions in the exchange format.
func Encode(w io.Writer, sessions []models.Session) error {
	if sessions == nil {
		sessions = []models.Session{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sessions); err != nil {
		return fmt.Errorf("encoding sessions: %w", err)
	}
	return nil
}

// Provider ingests uploaded or pasted session JSON.
type Provider struct {
	log *slog.Logger
}

// NewProvider creates a new JSON ingest provider.
func NewProvider(log *slog.Logger) *Provider {
	return &Provider{log: log}
}

// Source implements ingest.Provider.
func (p *Provider) Source() string { return ingest.SourceJSON }

// Decode reads the whole input and decodes it.
func (p *Provider) Decode(ctx context.Context, r io.Reader) ([]models.Session, *ingest.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("reading JSON: %w", err)
	}
	sessions, err := Decode(data)
	if err != nil {
		p.log.Warn("rejected session JSON", "error", err)
		return nil, nil, err
	}
	result := ingest.Count(sessions)
	result.Source = p.Source()
	result.RepsFailures = p.countBadReps(data)
	return sessions, result, nil
}

// countBadReps counts rep values that decoded to 0 because they were not
// a non-negative whole number. The input has already passed the schema.
func (p *Provider) countBadReps(data []byte) int {
	var shadow []struct {
		Date      string `json:"date"`
		Exercises []struct {
			Name string `json:"name"`
			Sets []struct {
				Reps json.RawMessage `json:"reps"`
			} `json:"sets"`
		} `json:"exercises"`
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return 0
	}
	n := 0
	for _, s := range shadow {
		for _, ex := range s.Exercises {
			for _, set := range ex.Sets {
				if _, err := models.ParseCount(set.Reps); err != nil {
					n++
					p.log.Debug("malformed reps", "date", s.Date, "exercise", ex.Name, "reps", string(set.Reps))
				}
			}
		}
	}
	return n
}
