package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/wonny/invest-sim/internal/params"
)

// maxBodyBytes caps request bodies (scenario documents with events)
const maxBodyBytes = 1 << 20

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// problem one violated input constraint
type problem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// problemsOf flattens a validation error; nil for other errors
func problemsOf(err error) []problem {
	var verr *params.ValidationError
	if !errors.As(err, &verr) {
		return nil
	}
	problems := make([]problem, 0, len(verr.Problems))
	for _, p := range verr.Problems {
		problems = append(problems, problem{Field: p.Field, Message: p.Err.Error()})
	}
	return problems
}

// respondValidation writes 422 with every collected problem
func respondValidation(w http.ResponseWriter, err error) {
	problems := problemsOf(err)
	if problems == nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
		"error":    "invalid input",
		"problems": problems,
	})
}

// decodeJSON strict body decoding (unknown fields rejected)
func decodeJSON(r *http.Request, dest interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func readBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
}
