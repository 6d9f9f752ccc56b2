package matheval

import "encoding/json"

type calculateRequest struct {
	Expression string         `json:"expression"`
	Variables  map[string]any `json:"variables"`
}

type calculateResponse struct {
	Result any             `json:"result"`
	Error  json.RawMessage `json:"error"`
}
