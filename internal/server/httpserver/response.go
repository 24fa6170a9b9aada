package httpserver

import (
	"encoding/json"
	"net/http"
	"time"
)

// Response is the JSON envelope for every non-metrics route.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// Error codes carried in Response.Code and the X-Error-Code header.
const (
	CodeOK          = "OK"
	CodeNotReady    = "RKV-SYS-5030"
	CodeInternal    = "RKV-SYS-5000"
	CodeForbiddenIP = "RKV-ACL-4030"
	CodeInvalidIP   = "RKV-ACL-4031"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeEnvelope(w, r, status, &Response{Code: CodeOK, Message: "Success", Data: data})
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("X-Error-Code", code)
	writeEnvelope(w, r, status, &Response{Code: code, Message: message})
}

func writeEnvelope(w http.ResponseWriter, r *http.Request, status int, resp *Response) {
	resp.RequestID = GetRequestIDFromContext(r.Context())
	resp.Timestamp = time.Now().UnixMilli()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
