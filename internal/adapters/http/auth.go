package httpadapter

import (
	"encoding/json"
	"net/http"
)

func (rt *Router) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	token, err := rt.auth.Login(req.PIN)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid PIN"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     rt.cookies.Name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   rt.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// logout always succeeds: destroying a session that no longer exists is not
// an error the client can act on.
func (rt *Router) logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if token := rt.sessionToken(r); token != "" {
		rt.auth.Logout(token)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     rt.cookies.Name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   rt.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (rt *Router) sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(rt.cookies.Name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (rt *Router) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rt.auth.IsAuthenticated(rt.sessionToken(r)) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Not authorized"})
			return
		}
		next(w, r)
	}
}
