package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"events-calendar/data/models"

	"github.com/go-playground/validator"
)

const maxBodyBytes = 1 << 20

type successJSON struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
}

type errorJSON struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, err = w.Write(payload)
	return err
}

func (app *application) SendSuccessJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	return writeJSON(w, statusCode, successJSON{Status: "success", Data: data})
}

// SendErrorJSON writes err's message in the error envelope. Statuses of 500 and
// above are reported as "error", everything else as "fail".
func (app *application) SendErrorJSON(w http.ResponseWriter, statusCode int, err error) error {
	status := "fail"
	if statusCode >= http.StatusInternalServerError {
		status = "error"
	}
	return writeJSON(w, statusCode, errorJSON{Status: status, Message: err.Error()})
}

// ReadJSON decodes a single JSON value of at most maxBodyBytes from the request
// body into dst and, when validate is set, checks its struct tags. Every error
// it returns wraps models.ErrValidation.
func (app *application) ReadJSON(w http.ResponseWriter, r *http.Request, dst interface{}, validate bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %s", models.ErrValidation, decodeMessage(err))
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: body must only contain a single JSON value", models.ErrValidation)
	}

	if !validate {
		return nil
	}
	if err := models.Validator().Struct(dst); err != nil {
		return fmt.Errorf("%w: %s", models.ErrValidation, validationMessage(err))
	}
	return nil
}

func decodeMessage(err error) string {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.As(err, &syntaxErr):
		return fmt.Sprintf("body contains badly-formed JSON (at character %d)", syntaxErr.Offset)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return "body contains badly-formed JSON"
	case errors.As(err, &typeErr):
		if typeErr.Field != "" {
			return fmt.Sprintf("body contains incorrect JSON type for field %q", typeErr.Field)
		}
		return fmt.Sprintf("body contains incorrect JSON type (at character %d)", typeErr.Offset)
	case errors.Is(err, io.EOF):
		return "body must not be empty"
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		return "body contains unknown key " + strings.TrimPrefix(err.Error(), "json: unknown field ")
	case errors.As(err, &maxBytesErr):
		return fmt.Sprintf("body must not be larger than %d bytes", maxBytesErr.Limit)
	default:
		return err.Error()
	}
}

// validationMessage names each failing field by its JSON spelling.
func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed the %q rule", lowerFirst(fe.Field()), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
