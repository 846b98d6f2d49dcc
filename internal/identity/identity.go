// Package identity implements the client-held random identifier. There is
// no server-side verification; the token only needs to be stable per
// browser, which the cookie provides.
package identity

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

const CookieName = "imposter_id"

// HeaderName lets non-browser clients pass their token explicitly.
const HeaderName = "X-Imposter-Identity"

// GetOrCreate returns the caller's identity token, minting and setting a
// cookie on first contact. The header wins over the cookie when both are
// present.
func GetOrCreate(w http.ResponseWriter, r *http.Request) string {
	if id := r.Header.Get(HeaderName); id != "" {
		return id
	}

	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		Expires:  time.Now().Add(365 * 24 * time.Hour),
		SameSite: http.SameSiteLaxMode,
	})

	return id
}
