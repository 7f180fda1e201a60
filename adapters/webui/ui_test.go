package webui_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/luno/jettison/jtest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/luno/sepadoc"
	"github.com/luno/sepadoc/adapters/memsource"
	"github.com/luno/sepadoc/adapters/webui"
)

type generator struct{}

func (generator) Generate(ctx context.Context, r *sepadoc.Record) (string, error) {
	return fmt.Sprintf("output/avis_%d.pdf", r.ID), nil
}

type deliverer struct{}

func (deliverer) Mode() sepadoc.DeliveryMode { return sepadoc.DeliveryModeDirect }

func (deliverer) Send(ctx context.Context, documentPath string, r *sepadoc.Record) error { return nil }

func (deliverer) CreateDeliveryLog(ctx context.Context, sent []*sepadoc.Record) (string, error) {
	return "log/accuse.pdf", nil
}

func records(n int) []*sepadoc.Record {
	var out []*sepadoc.Record
	for i := 1; i <= n; i++ {
		out = append(out, sepadoc.NewRecord(int64(i), map[string]sepadoc.Value{
			"client":        sepadoc.StringValue(fmt.Sprintf("Client %d", i)),
			"date_avis":     sepadoc.DateValue(time.Date(2023, time.January, i, 0, 0, 0, 0, time.UTC)),
			"montant_total": sepadoc.DecimalValue(decimal.NewFromInt(int64(i * 10))),
		}))
	}

	return out
}

func newServer(t *testing.T, values map[string]sepadoc.Value) *httptest.Server {
	p := sepadoc.New(
		memsource.New(records(5), memsource.WithDateAttribute("date_avis")),
		func(ctx context.Context) (sepadoc.Generator, error) { return generator{}, nil },
		func(ctx context.Context) (sepadoc.Deliverer, error) { return deliverer{}, nil },
		sepadoc.WithLogger(sepadoc.NoopLogger{}),
	)

	srv := httptest.NewServer(webui.NewRouter(p, sepadoc.NewSettings(values)))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string, body any) (int, []byte) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		jtest.RequireNil(t, err)
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, r)
	jtest.RequireNil(t, err)

	resp, err := http.DefaultClient.Do(req)
	jtest.RequireNil(t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	jtest.RequireNil(t, err)
	return resp.StatusCode, b
}

func decode[T any](t *testing.T, b []byte) T {
	var v T
	jtest.RequireNil(t, json.Unmarshal(b, &v))
	return v
}

type state struct {
	State     string `json:"state"`
	Stage     string `json:"stage"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Outcome   string `json:"outcome"`
	Message   string `json:"message"`
	Voucher   string `json:"voucher_path"`
}

// awaitOutcome polls /state until the last stage reports an outcome and the pipeline is idle again.
func awaitOutcome(t *testing.T, srv *httptest.Server) state {
	var s state
	require.Eventually(t, func() bool {
		_, b := do(t, http.MethodGet, srv.URL+"/state", nil)
		s = decode[state](t, b)
		return s.Outcome != "" && s.State == "Idle"
	}, 5*time.Second, 10*time.Millisecond)

	return s
}

type page struct {
	Page      int `json:"page"`
	PageCount int `json:"page_count"`
	PerPage   int `json:"per_page"`
	Total     int `json:"total"`
	Items     []struct {
		ID           string            `json:"id"`
		Selected     bool              `json:"selected"`
		DocumentPath string            `json:"document_path"`
		Attributes   map[string]string `json:"attributes"`
	} `json:"items"`
}

func TestFetchAndPage(t *testing.T) {
	srv := newServer(t, nil)

	status, b := do(t, http.MethodPost, srv.URL+"/fetch", map[string]string{"start": "2023-01-01", "end": "2023-01-31"})
	require.Equal(t, http.StatusAccepted, status, string(b))
	require.Equal(t, "Fetch", decode[map[string]any](t, b)["stage"])

	s := awaitOutcome(t, srv)
	require.Equal(t, "Completed", s.Outcome)
	require.Equal(t, 5, s.Completed)

	status, b = do(t, http.MethodGet, srv.URL+"/records?page=0&height=82", nil)
	require.Equal(t, http.StatusOK, status)
	first := decode[page](t, b)
	require.Equal(t, 3, first.PerPage)
	require.Equal(t, 2, first.PageCount)
	require.Equal(t, 5, first.Total)
	require.Len(t, first.Items, 3)
	require.Equal(t, "1", first.Items[0].ID)
	require.True(t, first.Items[0].Selected)
	require.Equal(t, "Client 1", first.Items[0].Attributes["client"])
	require.Equal(t, "01-01-2023", first.Items[0].Attributes["date_avis"])

	_, b = do(t, http.MethodGet, srv.URL+"/records?page=1", nil)
	second := decode[page](t, b)
	require.Len(t, second.Items, 2)
	require.Equal(t, "4", second.Items[0].ID)

	_, b = do(t, http.MethodGet, srv.URL+"/records?page=7", nil)
	require.Empty(t, decode[page](t, b).Items)

	status, _ = do(t, http.MethodGet, srv.URL+"/records?page=-1", nil)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestFetchDefaultsFromSettings(t *testing.T) {
	srv := newServer(t, map[string]sepadoc.Value{
		sepadoc.KeyPaymentStart: sepadoc.DateValue(time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)),
	})

	status, _ := do(t, http.MethodPost, srv.URL+"/fetch", nil)
	require.Equal(t, http.StatusAccepted, status)

	s := awaitOutcome(t, srv)
	require.Equal(t, "Failed", s.Outcome)
	require.Equal(t, sepadoc.UserMessage(sepadoc.ErrEndDateNotSpecified), s.Message)

	status, _ = do(t, http.MethodPost, srv.URL+"/fetch", map[string]string{"end": "31/01/2023"})
	require.Equal(t, http.StatusBadRequest, status)
}

func TestSelect(t *testing.T) {
	srv := newServer(t, nil)

	do(t, http.MethodPost, srv.URL+"/fetch", map[string]string{"start": "2023-01-01", "end": "2023-01-31"})
	awaitOutcome(t, srv)

	status, b := do(t, http.MethodPut, srv.URL+"/records/2/selected", map[string]bool{"selected": false})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, false, decode[map[string]any](t, b)["selected"])

	status, b = do(t, http.MethodPut, srv.URL+"/records/99/selected", map[string]bool{"selected": false})
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, sepadoc.UserMessage(sepadoc.ErrRecordNotFound), decode[map[string]any](t, b)["error"])

	status, _ = do(t, http.MethodPut, srv.URL+"/records/two/selected", map[string]bool{"selected": false})
	require.Equal(t, http.StatusBadRequest, status)
}

func TestGenerateAndSend(t *testing.T) {
	srv := newServer(t, nil)

	do(t, http.MethodPost, srv.URL+"/fetch", map[string]string{"start": "2023-01-01", "end": "2023-01-31"})
	awaitOutcome(t, srv)
	do(t, http.MethodPut, srv.URL+"/records/3/selected", map[string]bool{"selected": false})

	status, _ := do(t, http.MethodPost, srv.URL+"/generate", nil)
	require.Equal(t, http.StatusAccepted, status)
	s := awaitOutcome(t, srv)
	require.Equal(t, "Generate", s.Stage)
	require.Equal(t, 4, s.Completed)

	_, b := do(t, http.MethodGet, srv.URL+"/records?page=0&height=200", nil)
	items := decode[page](t, b).Items
	require.Equal(t, "output/avis_1.pdf", items[0].DocumentPath)
	require.Empty(t, items[2].DocumentPath)

	status, _ = do(t, http.MethodPost, srv.URL+"/send", nil)
	require.Equal(t, http.StatusAccepted, status)
	s = awaitOutcome(t, srv)
	require.Equal(t, "Send", s.Stage)
	require.Equal(t, "Completed", s.Outcome)
	require.Equal(t, 4, s.Completed)
	require.Equal(t, "log/accuse.pdf", s.Voucher)

	status, b = do(t, http.MethodGet, srv.URL+"/metrics", nil)
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, string(b), "sepadoc_stage_items_total")
}

func TestPreconditions(t *testing.T) {
	srv := newServer(t, nil)

	status, b := do(t, http.MethodPost, srv.URL+"/generate", nil)
	require.Equal(t, http.StatusConflict, status)
	resp := decode[map[string]string](t, b)
	require.Equal(t, "Precondition", resp["kind"])
	require.Equal(t, sepadoc.UserMessage(sepadoc.ErrNoRecords), resp["error"])

	status, b = do(t, http.MethodPost, srv.URL+"/cancel", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, false, decode[map[string]bool](t, b)["cancelled"])

	_, b = do(t, http.MethodGet, srv.URL+"/state", nil)
	require.Equal(t, "Idle", decode[state](t, b).State)
}

func TestHome(t *testing.T) {
	srv := newServer(t, nil)

	status, b := do(t, http.MethodGet, srv.URL+"/", nil)
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, string(b), "Demandes de règlement")
}
