package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"event-storefront/storefront"
	"event-storefront/utils"
)

type contextKey string

const (
	SessionContextKey contextKey = "storefront_session"

	CookieName     = "storefront-session"
	sessionIDValue = "sid"
)

var ErrNoSessionCookie = errors.New("no storefront session cookie")

// CookieOptions configure the browser session cookie.
type CookieOptions struct {
	Secret string
	Domain string
	MaxAge int
	Secure bool
}

// SessionCookies maps a signed cookie to a storefront session id.
type SessionCookies struct {
	store *sessions.CookieStore
}

func NewSessionCookies(opts CookieOptions) *SessionCookies {
	store := sessions.NewCookieStore([]byte(opts.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   opts.Domain,
		MaxAge:   opts.MaxAge,
		Secure:   opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionCookies{store: store}
}

// Save binds the response's cookie to sessionID.
func (c *SessionCookies) Save(w http.ResponseWriter, r *http.Request, sessionID string) error {
	session, err := c.store.Get(r, CookieName)
	if err != nil && session == nil {
		return err
	}
	session.Values[sessionIDValue] = sessionID
	return session.Save(r, w)
}

// SessionID reads the storefront session id from the request's cookie.
func (c *SessionCookies) SessionID(r *http.Request) (string, error) {
	session, err := c.store.Get(r, CookieName)
	if err != nil {
		return "", err
	}
	id, ok := session.Values[sessionIDValue].(string)
	if !ok || id == "" {
		return "", ErrNoSessionCookie
	}
	return id, nil
}

// Clear expires the cookie.
func (c *SessionCookies) Clear(w http.ResponseWriter, r *http.Request) error {
	session, err := c.store.Get(r, CookieName)
	if err != nil && session == nil {
		return err
	}
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// RequireSession resolves the cookie to a live storefront session and puts it
// in the request context.
func RequireSession(cookies *SessionCookies, manager *storefront.Manager, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := cookies.SessionID(r)
			if err != nil {
				logger.Debug("missing or invalid session cookie",
					zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
				utils.SendErrorResponse(w, http.StatusUnauthorized, "No storefront session")
				return
			}

			sess, err := manager.Get(id)
			if err != nil {
				logger.Debug("session not found", zap.String("session_id", id))
				utils.SendErrorResponse(w, http.StatusUnauthorized, "Storefront session expired")
				return
			}

			ctx := context.WithValue(r.Context(), SessionContextKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the session stored by RequireSession.
func SessionFromContext(ctx context.Context) *storefront.Session {
	sess, _ := ctx.Value(SessionContextKey).(*storefront.Session)
	return sess
}
