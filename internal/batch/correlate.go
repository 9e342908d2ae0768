package batch

import (
	"bytes"
	"encoding/json"

	"tgbatch/internal/transport"
)

// correlate turns one completed call into its Result.
// The HTTP status is not consulted: a bad status either still carries a
// JSON body (Success with the remote error envelope) or fails to decode.
func correlate(reply *transport.Reply, err error) Result {
	if err != nil {
		return Result{Kind: TransportFailure, Description: err.Error()}
	}
	if reply == nil {
		return Result{Kind: DecodeFailure, Description: InvalidJSONResponse}
	}

	body := bytes.TrimSpace(reply.Body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) || !json.Valid(body) {
		return Result{Kind: DecodeFailure, Description: InvalidJSONResponse}
	}

	return Result{Kind: Success, Value: json.RawMessage(body)}
}
