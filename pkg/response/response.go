package response

// Body is the JSON object written for successful requests.
// Payload keys sit next to "success" rather than under a data key.
type Body map[string]interface{}

// ErrorBody is the JSON object written for failed requests
type ErrorBody struct {
	Error string `json:"error"`
}

// Success merges the payload into a body flagged with success=true
func Success(payload map[string]interface{}) Body {
	body := make(Body, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["success"] = true
	return body
}

// SuccessWithPagination adds the standard page/limit/total keys to a list payload
func SuccessWithPagination(key string, items interface{}, page, limit int, total int64) Body {
	return Success(map[string]interface{}{
		key:     items,
		"page":  page,
		"limit": limit,
		"total": total,
	})
}

// Error returns the standard error body
func Error(err string) ErrorBody {
	return ErrorBody{Error: err}
}
