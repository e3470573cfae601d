package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chad-syntax/agentsmith-sub001/internal/models"
)

// APIKeyMiddleware authenticates SDK callers. Keys are stored hashed;
// a match binds the request to the key's organization and project.
type APIKeyMiddleware struct {
	db         *pgxpool.Pool
	headerName string
}

func NewAPIKeyMiddleware(db *pgxpool.Pool, headerName string) *APIKeyMiddleware {
	return &APIKeyMiddleware{db: db, headerName: headerName}
}

// Authenticate passes through when the header is absent so the JWT
// middleware can take over; a present but invalid key is a hard 401.
func (m *APIKeyMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(m.headerName)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		hash := HashAPIKey(key)

		var ak models.APIKey
		err := m.db.QueryRow(r.Context(),
			`SELECT id, organization_id, project_id, key_hash, name, expires_at, created_at
			 FROM api_keys WHERE key_hash = $1`, hash,
		).Scan(&ak.ID, &ak.OrganizationID, &ak.ProjectID, &ak.KeyHash, &ak.Name, &ak.ExpiresAt, &ak.CreatedAt)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		if ak.ExpiresAt != nil && ak.ExpiresAt.Before(time.Now()) {
			writeError(w, http.StatusUnauthorized, "API key expired")
			return
		}

		go func() {
			m.db.Exec(context.Background(), "UPDATE api_keys SET last_used_at = $1 WHERE id = $2", time.Now(), ak.ID)
		}()

		ctx := WithScope(r.Context(), Scope{
			OrganizationID: ak.OrganizationID,
			ProjectID:      ak.ProjectID,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func HashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
