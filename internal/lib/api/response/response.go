package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Response is the body of every non-2xx answer.
type Response struct {
	Detail string `json:"detail"`
}

func Error(msg string) Response {
	return Response{Detail: msg}
}

// ValidationError validate request
func ValidationError(errs validator.ValidationErrors) Response {
	var errMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "url":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is not a valid URL", err.Field()))
		case "oneof":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s must be one of: %s", err.Field(), err.Param()))
		default:
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is not valid", err.Field()))
		}
	}

	return Response{Detail: strings.Join(errMsgs, ", ")}
}

func NewJSON(w http.ResponseWriter, _ *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(true)

	if err := enc.Encode(v); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, `{"detail": "failed to encode response"}`)
		return
	}

	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func OK(w http.ResponseWriter, r *http.Request, v interface{}) {
	NewJSON(w, r, http.StatusOK, v)
}

func Fail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	NewJSON(w, r, status, Error(msg))
}
