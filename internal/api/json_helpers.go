package api

import (
	"encoding/json"
	"net/http"
)

type dataEnvelope struct {
	Data any `json:"data"`
}

type listEnvelope struct {
	Data  any `json:"data"`
	Total int `json:"total"`
}

type errorEnvelope struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, dataEnvelope{Data: v})
}

func writeList(w http.ResponseWriter, v any, total int) {
	writeJSON(w, http.StatusOK, listEnvelope{Data: v, Total: total})
}

func renderError(w http.ResponseWriter, e *Error) {
	writeJSON(w, e.Status, errorEnvelope{Code: e.Code, Message: e.Message, Details: e.Details})
}
