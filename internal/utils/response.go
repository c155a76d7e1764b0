package utils

import (
	"encoding/json"
	"net/http"

	"mekaniku/internal/apperr"
)

// APIResponse is the envelope every JSON endpoint responds with.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	Meta    *PageMeta   `json:"meta,omitempty"`
}

type ErrorBody struct {
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

func SuccessResponse(data interface{}) APIResponse {
	return APIResponse{Success: true, Data: data}
}

func ErrorResponse(message, code string, details interface{}) APIResponse {
	return APIResponse{
		Success: false,
		Error:   &ErrorBody{Message: message, Code: code, Details: details},
	}
}

func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	WriteJSON(w, status, SuccessResponse(data))
}

func WritePaginated(w http.ResponseWriter, data interface{}, meta PageMeta) {
	resp := SuccessResponse(data)
	resp.Meta = &meta
	WriteJSON(w, http.StatusOK, resp)
}

// WriteError translates err into the envelope. Errors outside the apperr
// taxonomy become a 500 without leaking their message.
func WriteError(w http.ResponseWriter, err error) {
	if e, ok := apperr.As(err); ok {
		message := e.Message
		if e.Kind == apperr.KindInternal {
			message = "Internal server error"
		}
		WriteJSON(w, e.HTTPStatus(), ErrorResponse(message, e.Code(), e.Details))
		return
	}
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse("Internal server error", "INTERNAL_ERROR", nil))
}
