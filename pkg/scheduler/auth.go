package scheduler

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/jscience/grid/pkg/utils"
	"google.golang.org/grpc/metadata"
)

const (
	RoleAdmin  = "admin"
	RoleWorker = "worker"
	RoleClient = "client"

	// Principal granted when authorization is disabled.
	AnonymousPrincipal = "anonymous"
)

// Outcome of a credential check.
type Authorization struct {
	Valid     bool
	Principal string
	Role      string
}

// Validates caller credentials.
type Authorizer interface {
	Authorize(token string) Authorization
}

type allowAll struct{}

// Returns an authorizer that accepts every caller as an anonymous admin.
func AllowAll() Authorizer {
	return allowAll{}
}

func (allowAll) Authorize(string) Authorization {
	return Authorization{Valid: true, Principal: AnonymousPrincipal, Role: RoleAdmin}
}

type TokenGrant struct {
	Principal string `mapstructure:"principal"`
	Role      string `mapstructure:"role"`
}

type tokenAuthorizer struct {
	grants map[string]TokenGrant
}

// Returns an authorizer backed by a static token table.
// An empty table authorizes everyone.
func NewTokenAuthorizer(grants map[string]TokenGrant) Authorizer {
	if len(grants) == 0 {
		return AllowAll()
	}
	return &tokenAuthorizer{grants: grants}
}

func (a *tokenAuthorizer) Authorize(token string) Authorization {
	for candidate, grant := range a.grants {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(token)) == 1 {
			return Authorization{Valid: true, Principal: grant.Principal, Role: grant.Role}
		}
	}
	return Authorization{}
}

// Extracts the bearer token from incoming request metadata.
func TokenFromContext(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}

	values := md.Get("authorization")
	if len(values) == 0 {
		return ""
	}

	token, found := strings.CutPrefix(values[0], "Bearer ")
	if !found {
		return values[0]
	}
	return token
}

// Authorizes the caller of a request and checks that it holds one of the roles.
// No roles means any valid caller is accepted.
func AuthorizeContext(ctx context.Context, authorizer Authorizer, roles ...string) (Authorization, error) {
	auth := authorizer.Authorize(TokenFromContext(ctx))
	if !auth.Valid {
		return auth, fmt.Errorf("%w: invalid credentials", utils.ErrUnauthorized)
	}

	if len(roles) == 0 || auth.Role == RoleAdmin {
		return auth, nil
	}

	for _, role := range roles {
		if auth.Role == role {
			return auth, nil
		}
	}

	return auth, fmt.Errorf("%w: role %q may not perform this operation", utils.ErrUnauthorized, auth.Role)
}
