package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/spmcheck/internal/sentencepiece/spmtest"
)

func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()
	path := spmtest.WriteModel(t, t.TempDir(), "tiny.model")
	provider := NewCachedProcessorProvider(ProviderConfig{DefaultModelPath: path})
	e := echo.New()
	NewServer(provider, nil).Register(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body: %v\n%s", err, rec.Body.String())
	}
	return out
}

func TestTokenizeDetokenize(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)
	rec := doJSON(t, e, http.MethodPost, "/v1/tokenize", `{"text":"Hello world!","add_bos":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("tokenize status: got %d body=%s", rec.Code, rec.Body.String())
	}
	tok := decodeBody[TokenizeResponse](t, rec)
	if tok.Model != "tiny" {
		t.Fatalf("unexpected model name %q", tok.Model)
	}
	wantPieces := []string{"<s>", "▁Hello", "▁world", "!"}
	if strings.Join(tok.Pieces, " ") != strings.Join(wantPieces, " ") {
		t.Fatalf("pieces = %q, want %q", tok.Pieces, wantPieces)
	}
	if tok.Count != 4 || len(tok.IDs) != 4 || tok.IDs[0] != 1 {
		t.Fatalf("unexpected ids: %+v", tok)
	}

	body, _ := json.Marshal(DetokenizeRequest{IDs: tok.IDs})
	rec = doJSON(t, e, http.MethodPost, "/v1/detokenize", string(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("detokenize status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[DetokenizeResponse](t, rec).Text; got != "Hello world!" {
		t.Fatalf("detokenize text = %q", got)
	}
}

func TestTokenizeValidation(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)

	rec := doJSON(t, e, http.MethodPost, "/v1/tokenize", `{"text":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for truncated body, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"type":"invalid_request_error"`) {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}

	rec = doJSON(t, e, http.MethodPost, "/v1/tokenize", `{"text":"x","bogus":1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}

	rec = doJSON(t, e, http.MethodPost, "/v1/tokenize", `{"text":"x","model":"other"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown model, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestDetokenizeOutOfRange(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)
	rec := doJSON(t, e, http.MethodPost, "/v1/detokenize", `{"ids":[3, 100000]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestModelInfo(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)
	rec := doJSON(t, e, http.MethodGet, "/v1/model", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("model status: got %d body=%s", rec.Code, rec.Body.String())
	}
	info := decodeBody[map[string]any](t, rec)
	if info["name"] != "tiny" || info["model_type"] != "unigram" || info["byte_fallback"] != true {
		t.Fatalf("unexpected model info: %v", info)
	}
	if fp, _ := info["fingerprint"].(string); len(fp) != 16 {
		t.Fatalf("unexpected fingerprint %v", info["fingerprint"])
	}
}

func TestPieceLookups(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)

	rec := doJSON(t, e, http.MethodGet, "/v1/pieces/3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("piece status: got %d body=%s", rec.Code, rec.Body.String())
	}
	piece := decodeBody[PieceResponse](t, rec)
	if piece.Piece != "▁Hello" || piece.Type != "normal" || piece.Score != -1 {
		t.Fatalf("unexpected piece: %+v", piece)
	}

	if rec := doJSON(t, e, http.MethodGet, "/v1/pieces/99999", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for out of range id, got %d", rec.Code)
	}
	if rec := doJSON(t, e, http.MethodGet, "/v1/pieces/abc", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric id, got %d", rec.Code)
	}

	rec = doJSON(t, e, http.MethodGet, "/v1/lookup?piece=%3C0x0A%3E", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("lookup status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[PieceResponse](t, rec); got.Type != "byte" {
		t.Fatalf("unexpected lookup: %+v", got)
	}

	if rec := doJSON(t, e, http.MethodGet, "/v1/lookup?piece=nope", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing piece, got %d", rec.Code)
	}
	if rec := doJSON(t, e, http.MethodGet, "/v1/lookup", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without piece, got %d", rec.Code)
	}
}

func TestProbe(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)

	rec := doJSON(t, e, http.MethodPost, "/v1/probe", `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("probe status: got %d body=%s", rec.Code, rec.Body.String())
	}
	var report struct {
		Model   string `json:"model"`
		Cases   []struct {
			Text      string `json:"text"`
			RoundTrip bool   `json:"round_trip"`
		} `json:"cases"`
		Summary struct {
			Cases int `json:"cases"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode probe: %v", err)
	}
	if report.Model != "tiny" || len(report.Cases) != 10 || report.Summary.Cases != 10 {
		t.Fatalf("unexpected default probe: %+v", report)
	}
	if !report.Cases[0].RoundTrip {
		t.Fatalf("expected %q to round trip", report.Cases[0].Text)
	}

	rec = doJSON(t, e, http.MethodPost, "/v1/probe", `{"samples":["Hello"]}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"pieces":["▁Hello"]`) {
		t.Fatalf("unexpected custom probe: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, e, http.MethodPost, "/v1/probe", samplesBody(maxProbeSamples))
	if rec.Code != http.StatusOK {
		t.Fatalf("probe with %d samples: got %d body=%s", maxProbeSamples, rec.Code, rec.Body.String())
	}
	if got := decodeBody[struct {
		Summary struct {
			Cases int `json:"cases"`
		} `json:"summary"`
	}](t, rec); got.Summary.Cases != maxProbeSamples {
		t.Fatalf("expected %d cases, got %d", maxProbeSamples, got.Summary.Cases)
	}

	rec = doJSON(t, e, http.MethodPost, "/v1/probe", samplesBody(maxProbeSamples+1))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("probe with %d samples: got %d body=%s", maxProbeSamples+1, rec.Code, rec.Body.String())
	}
	errResp := decodeBody[struct {
		Error ErrorBody `json:"error"`
	}](t, rec)
	if errResp.Error.Type != "invalid_request_error" {
		t.Fatalf("unexpected error type %q", errResp.Error.Type)
	}
}

func samplesBody(n int) string {
	samples := make([]string, n)
	for i := range samples {
		samples[i] = `"Hello"`
	}
	return `{"samples":[` + strings.Join(samples, ",") + `]}`
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)

	rec := doJSON(t, e, http.MethodGet, "/v1/models", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("models status: got %d", rec.Code)
	}
	if id := rec.Header().Get(HeaderRequestID); len(id) != 36 {
		t.Fatalf("expected generated uuid, got %q", id)
	}
	if !strings.Contains(rec.Body.String(), `"id":"tiny"`) {
		t.Fatalf("unexpected model list: %s", rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if got := rec.Header().Get(HeaderRequestID); got != "abc-123" {
		t.Fatalf("expected echoed request id, got %q", got)
	}
}
