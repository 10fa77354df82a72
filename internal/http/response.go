package http

// Status is the outcome reported in a JSON reply.
type Status string

const (
	StatusHealthy Status = "OK"
	StatusApplied Status = "success"
	StatusFailed  Status = "error"
)

// Response is the JSON body of health, len, mutation and error replies.
// Values and snapshots are sent raw.
type Response struct {
	Status Status `json:"status,omitempty"`
	Key    *int64 `json:"key,omitempty"`
	Len    *int   `json:"len,omitempty"`
	Error  string `json:"error,omitempty"`
}

func NewHealthResponse() Response {
	return Response{Status: StatusHealthy}
}

// NewAppliedResponse acknowledges a PUT or DELETE of key.
func NewAppliedResponse(key int64) Response {
	return Response{Status: StatusApplied, Key: &key}
}

func NewLenResponse(n int) Response {
	return Response{Status: StatusApplied, Len: &n}
}

func NewErrorResponse(msg string) Response {
	return Response{Status: StatusFailed, Error: msg}
}
