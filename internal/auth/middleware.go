package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Claims follow the Supabase-style HMAC JWT the dashboard issues.
type Claims struct {
	Sub       string `json:"sub"`
	Email     string `json:"email"`
	ProjectID string `json:"project_id"`
	jwt.RegisteredClaims
}

// JWTMiddleware authenticates dashboard callers. Requests already
// scoped by an API key skip token checks.
type JWTMiddleware struct {
	secret []byte
	db     *pgxpool.Pool
}

func NewJWTMiddleware(secret string, db *pgxpool.Pool) *JWTMiddleware {
	return &JWTMiddleware{secret: []byte(secret), db: db}
}

func (m *JWTMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ScopeFromContext(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}

		tokenStr := extractBearerToken(r)
		if tokenStr == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return m.secret, nil
		})
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		if claims.ExpiresAt != nil && claims.ExpiresAt.Time.Before(time.Now()) {
			writeError(w, http.StatusUnauthorized, "token expired")
			return
		}

		projectID, err := uuid.Parse(claims.ProjectID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid project ID in token")
			return
		}

		var orgID uuid.UUID
		err = m.db.QueryRow(r.Context(),
			`SELECT organization_id FROM projects WHERE id = $1`, projectID,
		).Scan(&orgID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "project not found")
			return
		}

		ctx := WithScope(r.Context(), Scope{OrganizationID: orgID, ProjectID: projectID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
