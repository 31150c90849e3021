package mcpclient

import "encoding/json"

// envelope is the wire shape of a JSON-RPC 2.0 request, response, or
// notification. It is a local, minimal reimplementation of the runtime's
// own jsonrpc.Message rather than an import of it: the runtime module's
// jsonrpc package lives under an internal/ path and this SDK is
// deliberately a separate module, so it cannot see it.
type envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int64           `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	return e.Message
}

func newRequest(id int64, method string, params any) (envelope, error) {
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return envelope{}, err
		}
		raw = b
	}
	return envelope{JSONRPC: "2.0", ID: &id, Method: method, Params: raw}, nil
}
