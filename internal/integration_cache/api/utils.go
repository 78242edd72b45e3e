package api

import (
	"encoding/json"
	"net/http"

	"github.com/telephony/integration-connector/internal/platform/logger"
)

type errorResponse struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func writeJSONResponse(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)

	if payload == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.LogError("Unable to encode payload!", err)
	}
}

func writeErrorResponse(w http.ResponseWriter, status int, title string, err error) {
	response := errorResponse{Title: title, Status: status}
	if err != nil {
		response.Detail = err.Error()
	}
	writeJSONResponse(w, status, response)
}
