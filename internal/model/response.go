package model

// Response is the JSON envelope for every API and error response.
type Response struct {
	Data    interface{} `json:"data,omitempty"`
	Error   *string     `json:"error,omitempty"`
	Message string      `json:"message"`
}

// ErrorResponse builds an envelope carrying errMsg under "error".
func ErrorResponse(message, errMsg string) Response {
	return Response{Error: &errMsg, Message: message}
}
