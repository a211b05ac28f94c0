package rest

import (
	"net/http"

	"github.com/goccy/go-json"
)

type dataResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondData(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, dataResponse{Message: message, Data: data})
}

func respondError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}
