// Mints identity-provider test tokens for local curl sessions:
//
//	IDP_SECRET=dev-secret go run ./cmd/tool -sub sub-123 -email jae.kim@example.com
//
// The output is a bearer token the service's verifier accepts. Dev only; the
// real provider signs production tokens.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/orgnet-app/identity-service/internal/identity"
	"github.com/orgnet-app/identity-service/internal/infrastructure/security"
)

func main() {
	_ = godotenv.Load()

	var (
		sub        = flag.String("sub", "", "subject id (required)")
		email      = flag.String("email", "", "email claim (required)")
		name       = flag.String("name", "Dev User", "name claim")
		unverified = flag.Bool("unverified", false, "mint with email_verified=false")
		ttl        = flag.Duration("ttl", time.Hour, "token lifetime")
	)
	flag.Parse()

	if *sub == "" || *email == "" {
		flag.Usage()
		os.Exit(2)
	}

	secret := os.Getenv("IDP_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "IDP_SECRET is required")
		os.Exit(2)
	}
	issuer := envOr("IDP_ISSUER", "idp.example.com")
	audience := envOr("IDP_AUDIENCE", "identity-service")

	v := security.NewIdPVerifier(secret, issuer, audience)
	tok, err := v.SignForTest(identity.Identity{
		SubjectID:     *sub,
		Email:         *email,
		EmailVerified: !*unverified,
		Name:          *name,
	}, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(tok)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
