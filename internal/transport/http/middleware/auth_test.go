package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/orgnet-app/identity-service/internal/domain"
	"github.com/orgnet-app/identity-service/internal/identity"
)

// ---- fakes ----

type fakeVerifier struct {
	id     identity.Identity
	err    error
	calls  int
	gotTok string
}

func (f *fakeVerifier) Verify(token string) (identity.Identity, error) {
	f.calls++
	f.gotTok = token
	return f.id, f.err
}

type writeErrRecorder struct {
	calls int
	last  error
}

func (w *writeErrRecorder) fn(rw http.ResponseWriter, _ *http.Request, err error) {
	w.calls++
	w.last = err
	rw.WriteHeader(http.StatusUnauthorized)
}

// next handler checks context injection
type nextRecorder struct {
	calls int
	gotID identity.Identity
	gotOK bool
}

func (n *nextRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n.calls++
	n.gotID, n.gotOK = IdentityFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func runAuthMW(t *testing.T, verifier TokenVerifier, req *http.Request) (*httptest.ResponseRecorder, *writeErrRecorder, *nextRecorder) {
	t.Helper()

	rr := httptest.NewRecorder()
	we := &writeErrRecorder{}
	nx := &nextRecorder{}

	Auth(verifier, we.fn)(nx).ServeHTTP(rr, req)
	return rr, we, nx
}

// ---- tests ----

func TestAuth_MissingHeader_TokenMissing(t *testing.T) {
	v := &fakeVerifier{}
	req := httptest.NewRequest(http.MethodGet, "/identity/v1/session", nil)

	_, we, nx := runAuthMW(t, v, req)

	if nx.calls != 0 {
		t.Fatalf("next must not run without a token")
	}
	if we.calls != 1 || !domain.Is(we.last, "token_missing") {
		t.Fatalf("expected token_missing, got %v", we.last)
	}
	if v.calls != 0 {
		t.Fatalf("verifier must not run without a token")
	}
}

func TestAuth_MalformedHeader_TokenInvalid(t *testing.T) {
	for _, h := range []string{"Basic abc", "Bearer", "Bearer   "} {
		v := &fakeVerifier{}
		req := httptest.NewRequest(http.MethodGet, "/identity/v1/session", nil)
		req.Header.Set("Authorization", h)

		_, we, nx := runAuthMW(t, v, req)

		if nx.calls != 0 {
			t.Fatalf("header %q: next must not run", h)
		}
		if !domain.Is(we.last, "token_invalid") {
			t.Fatalf("header %q: expected token_invalid, got %v", h, we.last)
		}
	}
}

func TestAuth_VerifierRejects_ErrorPassedThrough(t *testing.T) {
	v := &fakeVerifier{err: domain.ErrTokenExpired()}
	req := httptest.NewRequest(http.MethodGet, "/identity/v1/session", nil)
	req.Header.Set("Authorization", "Bearer some.token")

	_, we, nx := runAuthMW(t, v, req)

	if nx.calls != 0 {
		t.Fatalf("next must not run on a rejected token")
	}
	if !domain.Is(we.last, "token_expired") {
		t.Fatalf("expected token_expired, got %v", we.last)
	}
	if v.gotTok != "some.token" {
		t.Fatalf("expected raw token forwarded, got %q", v.gotTok)
	}
}

func TestAuth_EmptySubject_TokenInvalid(t *testing.T) {
	v := &fakeVerifier{id: identity.Identity{Email: "jae.kim@example.com", EmailVerified: true}}
	req := httptest.NewRequest(http.MethodGet, "/identity/v1/session", nil)
	req.Header.Set("Authorization", "Bearer some.token")

	_, we, nx := runAuthMW(t, v, req)

	if nx.calls != 0 {
		t.Fatalf("next must not run without a subject id")
	}
	if !domain.Is(we.last, "token_invalid") {
		t.Fatalf("expected token_invalid, got %v", we.last)
	}
}

func TestAuth_ValidToken_InjectsIdentity(t *testing.T) {
	want := identity.Identity{
		SubjectID:     "sub-123",
		Email:         "jae.kim@example.com",
		EmailVerified: true,
		Name:          "Jae Kim",
	}
	v := &fakeVerifier{id: want}
	req := httptest.NewRequest(http.MethodGet, "/identity/v1/session", nil)
	req.Header.Set("Authorization", "bearer some.token") // scheme is case-insensitive

	rr, we, nx := runAuthMW(t, v, req)

	if we.calls != 0 {
		t.Fatalf("unexpected error: %v", we.last)
	}
	if nx.calls != 1 || !nx.gotOK {
		t.Fatalf("expected next to run with an identity in context")
	}
	if nx.gotID != want {
		t.Fatalf("expected %+v, got %+v", want, nx.gotID)
	}
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}
