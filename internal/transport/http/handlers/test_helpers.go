package http_handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/orgnet-app/identity-service/internal/identity"
	"github.com/orgnet-app/identity-service/internal/transport/http/middleware"
)

// mustJSONBody marshals v to JSON and returns an io.Reader for request body.
func mustJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json marshal: %v", err)
	}
	return bytes.NewReader(b)
}

// withIdentityCtx injects a verified external identity into the request
// context, the way the auth middleware does after token verification.
func withIdentityCtx(req *http.Request, id identity.Identity) *http.Request {
	return req.WithContext(middleware.WithIdentity(req.Context(), id))
}

func mustDecode(t *testing.T, r io.Reader, out any) {
	t.Helper()

	if err := json.NewDecoder(r).Decode(out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}
