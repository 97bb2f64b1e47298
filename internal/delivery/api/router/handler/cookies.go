package handler

import (
	"net/http"
	"strings"
	"time"

	"herald/config"
	"herald/internal/domain/constants"
	"herald/internal/domain/service"

	"github.com/labstack/echo/v4"
)

const (
	accessCookiePath  = "/"
	refreshCookiePath = "/auth"
)

// tokenCookies writes the HTTP-only token carriers.
type tokenCookies struct {
	cfg config.CookieConfig
}

func newTokenCookies(cfg *config.Config) tokenCookies {
	if cfg.Auth == nil {
		return tokenCookies{}
	}

	return tokenCookies{cfg: cfg.Auth.Cookie}
}

func (tc tokenCookies) set(c echo.Context, pair *service.TokenPair) {
	c.SetCookie(tc.cookie(constants.CookieAccessToken, pair.AccessToken, accessCookiePath, pair.AccessExpiresAt))
	c.SetCookie(tc.cookie(constants.CookieRefreshToken, pair.RefreshToken, refreshCookiePath, pair.RefreshExpiresAt))
}

func (tc tokenCookies) clear(c echo.Context) {
	for _, cookie := range []*http.Cookie{
		tc.cookie(constants.CookieAccessToken, "", accessCookiePath, time.Unix(0, 0)),
		tc.cookie(constants.CookieRefreshToken, "", refreshCookiePath, time.Unix(0, 0)),
	} {
		cookie.MaxAge = -1
		c.SetCookie(cookie)
	}
}

func (tc tokenCookies) cookie(name, value, path string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   tc.cfg.Domain,
		Expires:  expires,
		Secure:   tc.cfg.Secure,
		HttpOnly: true,
		SameSite: parseSameSite(tc.cfg.SameSite),
	}
}

func parseSameSite(mode string) http.SameSite {
	switch strings.ToLower(mode) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
