package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/beaconkit/beacon/internal/constants"
)

// sendJSONResponse encodes body as JSON with the specified status code
func (s *Server) sendJSONResponse(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// sendErrorResponse sends a JSON error response
func (s *Server) sendErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(statusCode)
	response := map[string]string{"error": message}
	_ = json.NewEncoder(w).Encode(response)
}

// sendErrorResponseWithCode sends a JSON error response with a machine-readable code
func (s *Server) sendErrorResponseWithCode(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(statusCode)
	response := map[string]string{"error": message, "code": code}
	_ = json.NewEncoder(w).Encode(response)
}

// sendMethodNotAllowedResponse sends a 405 Method Not Allowed response
func (s *Server) sendMethodNotAllowedResponse(w http.ResponseWriter, methods []string, requestedMethod string) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(http.StatusMethodNotAllowed)
	response := map[string]interface{}{
		"error":   fmt.Sprintf("Method %s not allowed", requestedMethod),
		"code":    constants.ErrorCodeMethodNotAllowed,
		"methods": methods,
	}
	_ = json.NewEncoder(w).Encode(response)
}
