// Package auth holds the acting identity carried through a request and the
// password hashing used for stored credentials.
package auth

import (
	"context"

	"scanndine/model"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// Identity is the resolved caller of a request.
type Identity struct {
	UserID     uint
	Role       model.UserRole
	IsApproved bool
}

// IdentityFromUser builds the identity for a stored user.
func IdentityFromUser(u *model.User) *Identity {
	return &Identity{UserID: u.ID, Role: u.Role, IsApproved: u.IsApproved}
}

func (i *Identity) HasRole(roles ...model.UserRole) bool {
	if i == nil {
		return false
	}
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

// IsCustomer reports whether orders placed by i are attributed to a user.
func (i *Identity) IsCustomer() bool {
	return i.HasRole(model.RoleCustomer)
}

type ctxKey struct{}

const ginIdentityKey = "identity"

// WithIdentity stores id on a gin context and on its request context.
func WithIdentity(c *gin.Context, id *Identity) {
	c.Set(ginIdentityKey, id)
	c.Set("user_id", id.UserID)
	c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), ctxKey{}, id))
}

// FromGin returns the identity resolved for the request, or nil for guests.
func FromGin(c *gin.Context) *Identity {
	v, ok := c.Get(ginIdentityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*Identity)
	return id
}

// FromContext returns the identity stored by WithIdentity, or nil.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(ctxKey{}).(*Identity)
	return id
}

// PasswordHasher hashes and verifies passwords with bcrypt.
type PasswordHasher struct {
	cost int
}

func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

func (h *PasswordHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare reports whether plain matches digest. Any mismatch or malformed
// digest yields false.
func (h *PasswordHasher) Compare(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}
