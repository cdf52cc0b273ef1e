package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"novelchat/apperrors"
)

// codeOK is the envelope code of a successful call.
const codeOK = 200

// envelope is the {code, data, msg} wrapper around every REST response.
type envelope struct {
	Code int             `json:"code"`
	Data json.RawMessage `json:"data"`
	Msg  string          `json:"msg"`
}

// unwrap decodes body as an envelope and, on success, its data into out.
// out may be nil when the caller does not need the payload.
func unwrap(endpoint string, body []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return apperrors.NewAPITransportError(endpoint, fmt.Errorf("decode envelope: %w", err))
	}

	if env.Code != codeOK {
		return apperrors.NewAPIError(endpoint, env.Code, env.Msg)
	}

	if out == nil || len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return apperrors.NewAPITransportError(endpoint, fmt.Errorf("decode data: %w", err))
	}
	return nil
}
