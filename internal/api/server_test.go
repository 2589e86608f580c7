package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"voice-features-go/internal/errs"
	"voice-features-go/internal/journal"
	"voice-features-go/internal/types"
)

type stubRunner struct {
	got  []types.BatchRequest
	resp *types.BatchResponse
	err  error
}

func (s *stubRunner) Run(_ context.Context, req types.BatchRequest) (*types.BatchResponse, error) {
	s.got = append(s.got, req)
	return s.resp, s.err
}

type stubBatches map[string]*types.BatchResponse

func (s stubBatches) Get(_ context.Context, id string) (*types.BatchResponse, error) {
	if r, ok := s[id]; ok {
		return r, nil
	}
	return nil, journal.ErrNotFound
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.ErrorResponse {
	t.Helper()
	var out types.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	rec := do(t, NewRouter(Deps{}), http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestExtractFeatures_OK(t *testing.T) {
	runner := &stubRunner{resp: &types.BatchResponse{Success: true, Message: "done", BatchID: "b-1", Results: []types.RecordReport{}}}
	h := NewRouter(Deps{Runner: runner})

	rec := do(t, h, http.MethodPost, "/v1/extract-features",
		`{"parentRecordIds":["t1","t2"],"templateId":"tpl","engineApiKey":"k"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	want := []types.BatchRequest{{ParentRecordIDs: []string{"t1", "t2"}, TemplateID: "tpl", EngineAPIKey: "k"}}
	if diff := cmp.Diff(want, runner.got); diff != "" {
		t.Fatalf("request (-want +got):\n%s", diff)
	}
	var resp types.BatchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.BatchID != "b-1" {
		t.Fatalf("response = %+v", resp)
	}
}

func TestExtractFeatures_BadInput(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		wantCode string
		wantMsg  string
	}{
		{"empty body", "", "json", "empty body"},
		{"malformed", `{"templateId":`, "json", "invalid JSON"},
		{"trailing data", `{"templateId":"t","engineApiKey":"k"} {}`, "json", "trailing"},
		{"missing template", `{"engineApiKey":"k"}`, "validation", "templateId"},
		{"missing engine key", `{"templateId":"tpl"}`, "validation", "engineApiKey"},
		{"blank record id", `{"templateId":"tpl","engineApiKey":"k","parentRecordIds":[""]}`, "validation", "parentRecordIds"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			runner := &stubRunner{}
			rec := do(t, NewRouter(Deps{Runner: runner}), http.MethodPost, "/v1/extract-features", c.body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rec.Code)
			}
			body := decodeError(t, rec)
			if body.Success || body.Code != c.wantCode || !strings.Contains(body.Error, c.wantMsg) {
				t.Fatalf("body = %+v", body)
			}
			if len(runner.got) != 0 {
				t.Fatal("runner must not be called")
			}
		})
	}
}

func TestExtractFeatures_NotConfigured(t *testing.T) {
	h := NewRouter(Deps{SetupErr: errs.New(errs.Config, "missing configuration: GRAPHQL_ENDPOINT")})
	rec := do(t, h, http.MethodPost, "/v1/extract-features", `{"templateId":"tpl","engineApiKey":"k"}`, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != "config" || !strings.Contains(body.Error, "GRAPHQL_ENDPOINT") {
		t.Fatalf("body = %+v", body)
	}
}

func TestExtractFeatures_RunnerErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errs.New(errs.NotFound, "template tpl not found"), http.StatusNotFound},
		{errs.New(errs.Validation, "template tpl has no features"), http.StatusBadRequest},
		{errs.New(errs.Upstream, "graph down"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		h := NewRouter(Deps{Runner: &stubRunner{err: c.err}})
		rec := do(t, h, http.MethodPost, "/v1/extract-features", `{"templateId":"tpl","engineApiKey":"k"}`, nil)
		if rec.Code != c.want {
			t.Errorf("%v: status = %d, want %d", c.err, rec.Code, c.want)
		}
	}
}

func TestPreflight(t *testing.T) {
	runner := &stubRunner{}
	rec := do(t, NewRouter(Deps{Runner: runner}), http.MethodOptions, "/v1/extract-features", "", map[string]string{
		"Origin":                         "https://app.example.com",
		"Access-Control-Request-Method":  "POST",
		"Access-Control-Request-Headers": "Content-Type",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow origin = %q", got)
	}
	if rec.Body.Len() != 0 || len(runner.got) != 0 {
		t.Fatalf("preflight should have no body and no batch: %q", rec.Body.String())
	}
}

func TestGetBatch(t *testing.T) {
	h := NewRouter(Deps{Batches: stubBatches{"b-1": {Success: true, BatchID: "b-1"}}})

	rec := do(t, h, http.MethodGet, "/v1/batches/b-1", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"batchId": "b-1"`) {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, h, http.MethodGet, "/v1/batches/nope", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown batch status = %d", rec.Code)
	}
	if rec := do(t, NewRouter(Deps{}), http.MethodGet, "/v1/batches/b-1", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("journal disabled status = %d", rec.Code)
	}
}
