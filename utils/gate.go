package utils

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"scanndine/apperr"
	"scanndine/auth"
	"scanndine/model"
	"scanndine/repository"

	"github.com/gin-gonic/gin"
)

type Access int

const (
	AccessPublic Access = iota + 1
	AccessOptional
	AccessRoles
)

// Policy says who may call a route. Optional routes resolve an identity
// when a usable token is present and otherwise continue as a guest.
type Policy struct {
	Access Access
	Roles  []model.UserRole
}

func Public() Policy   { return Policy{Access: AccessPublic} }
func Optional() Policy { return Policy{Access: AccessOptional} }

func Roles(roles ...model.UserRole) Policy {
	return Policy{Access: AccessRoles, Roles: roles}
}

// Authenticated admits any approved identity.
func Authenticated() Policy {
	return Roles(model.RoleCustomer, model.RoleStaff, model.RoleAdmin)
}

// UserLoader resolves the subject of a verified token.
type UserLoader interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
}

// Gate is the single access-control middleware. Every route registered on
// the engine must have a policy; a route without one is refused.
type Gate struct {
	tokens   *TokenIssuer
	users    UserLoader
	policies map[string]Policy
}

func NewGate(tokens *TokenIssuer, users UserLoader) *Gate {
	return &Gate{tokens: tokens, users: users, policies: make(map[string]Policy)}
}

func policyKey(method, path string) string { return method + " " + path }

// Allow records the policy for a route template such as /api/orders/:id.
func (g *Gate) Allow(method, path string, p Policy) {
	g.policies[policyKey(method, path)] = p
}

// PolicyFor returns the policy recorded for a route.
func (g *Gate) PolicyFor(method, path string) (Policy, bool) {
	p, ok := g.policies[policyKey(method, path)]
	return p, ok
}

func (g *Gate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			// unmatched route, left to the 404 handler
			c.Next()
			return
		}
		p, ok := g.PolicyFor(c.Request.Method, path)
		if !ok {
			RespondError(c, apperr.Forbidden("route has no access policy"))
			return
		}

		switch p.Access {
		case AccessPublic:
		case AccessOptional:
			if id, err := g.Resolve(c); err == nil {
				auth.WithIdentity(c, id)
			}
		case AccessRoles:
			id, err := g.Resolve(c)
			if err != nil {
				RespondError(c, err)
				return
			}
			if !id.HasRole(p.Roles...) {
				RespondError(c, apperr.Forbidden("insufficient role for this action"))
				return
			}
			auth.WithIdentity(c, id)
		default:
			RespondError(c, apperr.Forbidden("route has no access policy"))
			return
		}
		c.Next()
	}
}

// Resolve verifies the request token and loads the caller.
func (g *Gate) Resolve(c *gin.Context) (*auth.Identity, error) {
	token := bearerToken(c.Request)
	if token == "" {
		return nil, apperr.Unauthenticated("authorization token required")
	}
	_, userID, err := g.tokens.ParseAccessToken(token)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return nil, apperr.Unauthenticated("token has expired")
		}
		return nil, apperr.Unauthenticated("invalid token")
	}

	user, err := g.users.FindByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Unauthenticated("user not found")
		}
		return nil, err
	}
	if user.PendingApproval() {
		return nil, apperr.New(apperr.KindForbidden, apperr.CodeUnapproved, "account is awaiting admin approval")
	}
	return auth.IdentityFromUser(user), nil
}

// bearerToken reads the Authorization header, falling back to the token
// query parameter used by websocket clients.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
			return strings.TrimSpace(h[7:])
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
