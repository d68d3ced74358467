package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/example/ec-fulfillment/internal/auth"
)

const accessTokenCookie = "access_token"

// Caller is the authenticated principal behind a request.
type Caller struct {
	UserID   string
	Email    string
	Role     string
	VendorID string
}

func callerFromClaims(c *auth.Claims) Caller {
	return Caller{UserID: c.UserID, Email: c.Email, Role: c.Role, VendorID: c.VendorID}
}

func (c Caller) IsStaff() bool {
	return c.Role == auth.RoleAdmin || c.Role == auth.RoleCSR
}

// IsVendor reports whether the caller acts for a vendor account.
func (c Caller) IsVendor() bool {
	return c.Role == auth.RoleVendor && c.VendorID != ""
}

// Inbox is the recipient id the caller's notifications are addressed to.
// Vendor alerts go to the vendor, everything else to the user.
func (c Caller) Inbox() string {
	if c.IsVendor() {
		return c.VendorID
	}
	return c.UserID
}

// CanViewOrder reports whether the caller may read an order placed by customerID.
func (c Caller) CanViewOrder(customerID string) bool {
	return c.IsStaff() || (c.UserID != "" && c.UserID == customerID)
}

type callerKey struct{}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom returns the caller stored by Authenticate. The zero Caller is
// returned for anonymous requests.
func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}

// TokenVerifier checks an access token and returns its claims.
type TokenVerifier interface {
	ValidateAccessToken(token string) (*auth.Claims, error)
}

// Authenticate rejects requests without a valid access token. The token is
// read from the access_token cookie, then from a bearer Authorization header.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := accessToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "missing access token")
				return
			}

			claims, err := verifier.ValidateAccessToken(token)
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				writeError(w, http.StatusUnauthorized, "access token expired")
				return
			case err != nil:
				writeError(w, http.StatusUnauthorized, "invalid access token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), callerFromClaims(claims))))
		})
	}
}

// AllowRoles lets through callers holding one of roles.
func AllowRoles(roles ...string) func(http.Handler) http.Handler {
	return guard(func(c Caller) bool { return slices.Contains(roles, c.Role) }, "role not permitted")
}

// VendorOnly lets through callers acting for a vendor.
func VendorOnly(next http.Handler) http.Handler {
	return guard(Caller.IsVendor, "vendor account required")(next)
}

func guard(allow func(Caller) bool, denied string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := CallerFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "missing access token")
				return
			}
			if !allow(c) {
				writeError(w, http.StatusForbidden, denied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func accessToken(r *http.Request) string {
	if cookie, err := r.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
