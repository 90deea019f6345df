package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protectedHandler(t *testing.T, secret []byte) http.Handler {
	return TriggerAuthMiddleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, _ := r.Context().Value(ContextKeyCaller).(string)
		assert.Equal(t, "nightly-scheduler", caller)
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestTriggerAuthAcceptsMintedToken(t *testing.T) {
	secret := []byte("trigger-secret")
	tok, err := MintTriggerToken(secret, "nightly-scheduler", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/run", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	protectedHandler(t, secret).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTriggerAuthRejects(t *testing.T) {
	secret := []byte("trigger-secret")
	wrong, _ := MintTriggerToken([]byte("other"), "nightly-scheduler", time.Minute)
	expired, _ := MintTriggerToken(secret, "nightly-scheduler", -time.Minute)

	cases := map[string]string{
		"missing":    "",
		"not bearer": "Basic abc",
		"wrong key":  "Bearer " + wrong,
		"expired":    "Bearer " + expired,
	}
	for name, header := range cases {
		req := httptest.NewRequest(http.MethodPost, "/run", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		protectedHandler(t, secret).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
	}
}
