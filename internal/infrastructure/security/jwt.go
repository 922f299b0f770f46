package security

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/orgnet-app/identity-service/internal/domain"
	"github.com/orgnet-app/identity-service/internal/identity"
)

// IdPVerifier validates bearer tokens minted by the external identity
// provider. The service never issues tokens itself; it only checks the
// provider's signature, issuer and audience, then hands the claim set to the
// resolver.
type IdPVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

func NewIdPVerifier(secret, issuer, audience string) *IdPVerifier {
	return &IdPVerifier{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
	}
}

type idpClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	jwt.RegisteredClaims
}

func (v *IdPVerifier) Verify(token string) (identity.Identity, error) {
	parsed, err := jwt.ParseWithClaims(token, &idpClaims{}, func(t *jwt.Token) (any, error) {
		// prevent alg confusion
		if t.Method != jwt.SigningMethodHS256 {
			return nil, domain.ErrTokenInvalid()
		}
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
	)
	if err != nil {
		if errorsIsJWTExpired(err) {
			return identity.Identity{}, domain.ErrTokenExpired()
		}
		return identity.Identity{}, domain.ErrTokenInvalid()
	}

	claims, ok := parsed.Claims.(*idpClaims)
	if !ok || !parsed.Valid {
		return identity.Identity{}, domain.ErrTokenInvalid()
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return identity.Identity{}, domain.ErrTokenInvalid()
	}

	return identity.Identity{
		SubjectID:     claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
	}, nil
}

// SignForTest mints a token the verifier accepts. Test helper, also handy for
// local curl sessions against a dev stack.
func (v *IdPVerifier) SignForTest(id identity.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := idpClaims{
		Email:         id.Email,
		EmailVerified: id.EmailVerified,
		Name:          id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Audience:  jwt.ClaimStrings{v.audience},
			Subject:   id.SubjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(v.secret)
}

// local helper so you don't depend on jwt error types everywhere
func errorsIsJWTExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
