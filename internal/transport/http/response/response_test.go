package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/orgnet-app/identity-service/internal/domain"
	appCtx "github.com/orgnet-app/identity-service/internal/pkg/context"
)

// ---------- helpers ----------

func mustDecodeJSONLine(t *testing.T, b []byte, dst any) {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(dst); err != nil {
		t.Fatalf("decode json: %v, body=%q", err, string(b))
	}
}

func newReqWithBody(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// ---------- DecodeJSON tests ----------

type decodeDst struct {
	A string `json:"a"`
	B int    `json:"b"`
}

func TestDecodeJSON_OK_SingleObject(t *testing.T) {
	req := newReqWithBody(t, `{"a":"x","b":1}`)

	var dst decodeDst
	if err := DecodeJSON(req, &dst); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}

	if dst.A != "x" || dst.B != 1 {
		t.Fatalf("unexpected dst: %+v", dst)
	}
}

func TestDecodeJSON_InvalidJSON_ReturnsInvalidJSON(t *testing.T) {
	req := newReqWithBody(t, `{"a":"x",`)

	var dst decodeDst
	err := DecodeJSON(req, &dst)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.Is(err, "invalid_json") {
		t.Fatalf("expected invalid_json, got %v", err)
	}
}

func TestDecodeJSON_MultipleJSONValues_ReturnsInvalidJSON(t *testing.T) {
	req := newReqWithBody(t, `{}`+`{}`)

	var dst map[string]any
	err := DecodeJSON(req, &dst)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.Is(err, "invalid_json") {
		t.Fatalf("expected invalid_json, got %v", err)
	}
}

// ---------- WriteError / status mapping tests ----------

func TestWriteError_DomainError_MapsStatusCodeAndPayload(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req = req.WithContext(appCtx.WithRequestID(req.Context(), "req-123"))

	rr := httptest.NewRecorder()

	WriteError(rr, req, domain.ErrMissingField("email"))

	res := rr.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("expected content-type json, got %q", ct)
	}

	var body ErrorBody
	mustDecodeJSONLine(t, rr.Body.Bytes(), &body)

	if body.Code != "missing_field" {
		t.Fatalf("expected code missing_field, got %q", body.Code)
	}
	if body.Error == "" {
		t.Fatalf("expected non-empty message")
	}
	if body.Details == nil || body.Details["field"] != "email" {
		t.Fatalf("expected details.field=email, got %+v", body.Details)
	}
	if body.RequestID != "req-123" {
		t.Fatalf("expected request_id req-123, got %q", body.RequestID)
	}
}

func TestWriteError_NonDomainError_HidesDetailsAndReturns500(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rr := httptest.NewRecorder()

	WriteError(rr, req, errors.New("pq: connection reset by peer"))

	res := rr.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.StatusCode)
	}

	var body ErrorBody
	mustDecodeJSONLine(t, rr.Body.Bytes(), &body)

	if body.Code != "internal_error" {
		t.Fatalf("expected code internal_error, got %q", body.Code)
	}
	if strings.Contains(body.Error, "connection reset") {
		t.Fatalf("internal details must not leak: %q", body.Error)
	}
}

func TestWriteError_StatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", domain.ErrMissingField("email"), http.StatusBadRequest},
		{"auth", domain.ErrTokenExpired(), http.StatusUnauthorized},
		{"identity_conflict", domain.ErrIdentityConflict("a@b.com"), http.StatusForbidden},
		{"not_found", domain.ErrProfileNotFound(), http.StatusNotFound},
		{"conflict", domain.ErrCreationRace(nil), http.StatusConflict},
		{"transient", domain.ErrStoreUnavailable(nil), http.StatusServiceUnavailable},
		{"integrity", domain.ErrReKeyIntegrity("old", "new"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/x", nil)

			WriteError(rr, req, tc.err)

			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rr.Code)
			}
		})
	}
}

// ---------- WriteJSON / OK ----------

func TestOK_WritesFlatPayload(t *testing.T) {
	rr := httptest.NewRecorder()

	OK(rr, map[string]string{"status": "ok"})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var out map[string]string
	mustDecodeJSONLine(t, rr.Body.Bytes(), &out)
	if out["status"] != "ok" {
		t.Fatalf("unexpected body: %v", out)
	}
	if _, wrapped := out["data"]; wrapped {
		t.Fatalf("payload must not be wrapped in a data envelope")
	}
}

func TestNoContent_Writes204(t *testing.T) {
	rr := httptest.NewRecorder()

	NoContent(rr)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", rr.Body.String())
	}
}
