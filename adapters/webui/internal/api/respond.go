package api

import (
	"encoding/json"
	"net/http"

	"github.com/luno/jettison/errors"

	"github.com/luno/sepadoc"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.MarshalIndent(v, " ", " ")
	if err != nil {
		http.Error(w, "failed to json marshal response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

// writeError answers with the operator message of err. The error itself is logged by the pipeline.
func writeError(w http.ResponseWriter, err error) {
	kind := sepadoc.KindOf(err)

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, sepadoc.ErrRecordNotFound):
		status = http.StatusNotFound
	case kind == sepadoc.KindPrecondition:
		status = http.StatusConflict
	case kind == sepadoc.KindConfiguration:
		status = http.StatusBadRequest
	}

	writeJSON(w, status, ErrorResponse{Error: sepadoc.UserMessage(err), Kind: kind.String()})
}
