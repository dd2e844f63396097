package http

import (
	"encoding/json"
	"net/http"
)

const (
	codeMethodNotAllowed  = "method_not_allowed"
	codeNotFound          = "not_found"
	codeMissingToken      = "missing_token"
	codeTokenInvalid      = "invalid_token"
	codeTokenExpired      = "token_expired"
	codeTokenAlreadyUsed  = "token_already_used"
	codeOriginUnreachable = "origin_unreachable"
	codeForbidden         = "forbidden"
	codeInternalError     = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error: msg,
		Code:  code,
	})
}
