package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"timekeeper/models"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

type contextKey string

const UserContextKey contextKey = "user"

// TokenCookie is the cookie the session token travels in.
const TokenCookie = "token"

type Claims struct {
	EmployeeID uint        `json:"employee_id"`
	Username   string      `json:"username"`
	Role       models.Role `json:"role"`
	jwt.RegisteredClaims
}

var jwtSecret []byte

func SetJWTSecret(secret string) {
	jwtSecret = []byte(secret)
}

func GenerateToken(e *models.Employee, expiration time.Duration) (string, error) {
	claims := &Claims{
		EmployeeID: e.ID,
		Username:   e.Username,
		Role:       e.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

func ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}

// SetTokenCookie stores token in an HttpOnly cookie that lives as long as
// the token.
func SetTokenCookie(w http.ResponseWriter, token string, expiration time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(expiration.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func ClearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(TokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// AuthMiddleware resolves the session token, from the cookie or a Bearer
// header, to an active employee and stores it in the request context.
func AuthMiddleware(db *gorm.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := tokenFromRequest(r)
			if tokenString == "" {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			claims, err := ValidateToken(tokenString)
			if err != nil {
				ClearTokenCookie(w)
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			var employee models.Employee
			if err := db.WithContext(r.Context()).First(&employee, claims.EmployeeID).Error; err != nil || !employee.IsActive {
				ClearTokenCookie(w)
				writeError(w, http.StatusUnauthorized, "account is not active")
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, &employee)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePasswordChange blocks everything except the allowed paths until a
// seeded or reset account has picked its own password.
func RequirePasswordChange(allowed ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUserFromContext(r.Context())
			if user != nil && user.MustChangePassword {
				for _, p := range allowed {
					if r.URL.Path == p {
						next.ServeHTTP(w, r)
						return
					}
				}
				writeError(w, http.StatusForbidden, "password change required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUserFromContext(r.Context())
			if user == nil {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeError(w, http.StatusForbidden, "forbidden")
		})
	}
}

func GetUserFromContext(ctx context.Context) *models.Employee {
	user, ok := ctx.Value(UserContextKey).(*models.Employee)
	if !ok {
		return nil
	}
	return user
}

// WithUser returns ctx carrying e as the signed-in employee.
func WithUser(ctx context.Context, e *models.Employee) context.Context {
	return context.WithValue(ctx, UserContextKey, e)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
