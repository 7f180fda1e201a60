package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/luno/sepadoc"
)

const dateLayout = "2006-01-02"

type FetchRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type StartResponse struct {
	RunID string `json:"run_id"`
	Stage string `json:"stage"`
	Total int    `json:"total"`
}

type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

type StateResponse struct {
	State     string `json:"state"`
	RunID     string `json:"run_id,omitempty"`
	Stage     string `json:"stage,omitempty"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`

	Outcome     string `json:"outcome,omitempty"`
	Failed      int    `json:"failed,omitempty"`
	Message     string `json:"message,omitempty"`
	VoucherPath string `json:"voucher_path,omitempty"`
	ArchivePath string `json:"archive_path,omitempty"`
}

type StartFn func(ctx context.Context) (*sepadoc.Run, error)

// Fetch starts a Fetch stage. Bounds missing from the body fall back to defaults.
func Fetch(p *sepadoc.Pipeline, defaults func() sepadoc.DateRange, o *Observer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Bad Request: cannot read body", http.StatusBadRequest)
			return
		}

		var req FetchRequest
		if len(body) > 0 {
			err = json.Unmarshal(body, &req)
			if err != nil {
				http.Error(w, "Bad Request: cannot unmarshal body", http.StatusBadRequest)
				return
			}
		}

		dr := defaults()
		if dr.Start, err = parseDate(req.Start, dr.Start); err != nil {
			http.Error(w, "Bad Request: invalid start date", http.StatusBadRequest)
			return
		}

		if dr.End, err = parseDate(req.End, dr.End); err != nil {
			http.Error(w, "Bad Request: invalid end date", http.StatusBadRequest)
			return
		}

		start(w, r, func(ctx context.Context) (*sepadoc.Run, error) { return p.Fetch(ctx, dr) }, o)
	}
}

func parseDate(s string, def time.Time) (time.Time, error) {
	if s == "" {
		return def, nil
	}

	return time.Parse(dateLayout, s)
}

// Stage starts the stage returned by fn, Generate or Send.
func Stage(fn StartFn, o *Observer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start(w, r, fn, o)
	}
}

func start(w http.ResponseWriter, r *http.Request, fn StartFn, o *Observer) {
	run, err := fn(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	o.Observe(run)

	writeJSON(w, http.StatusAccepted, StartResponse{
		RunID: run.ID,
		Stage: run.Stage.String(),
		Total: run.Snapshot().Total,
	})
}

func Cancel(p *sepadoc.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, CancelResponse{Cancelled: p.Cancel()})
	}
}

func State(p *sepadoc.Pipeline, o *Observer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := StateResponse{State: p.State().String()}

		run, progress, res := o.Latest()
		if run != nil {
			resp.RunID = run.ID
			resp.Stage = run.Stage.String()
			resp.Completed = progress.Completed
			resp.Total = progress.Total
		}

		if res != nil {
			resp.Completed = res.Completed
			resp.Total = res.Total
			resp.Outcome = res.Outcome.String()
			resp.Failed = res.Failed
			resp.VoucherPath = res.VoucherPath
			resp.ArchivePath = res.ArchivePath
			if res.Err != nil {
				resp.Message = sepadoc.UserMessage(res.Err)
			}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
