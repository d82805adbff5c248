package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"collector/internal/i18n"
)

type I18nHandler struct {
	bundle  *i18n.Bundle
	cookies CookieOptions
}

type catalogResponse struct {
	Locale   string            `json:"locale"`
	Messages map[string]string `json:"messages"`
}

type localesResponse struct {
	Locales []string `json:"locales"`
	Current string   `json:"current"`
}

func NewI18nHandler(bundle *i18n.Bundle, cookies CookieOptions) *I18nHandler {
	return &I18nHandler{bundle: bundle, cookies: cookies}
}

func (h *I18nHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/i18n", h.Locales)
	g.GET("/i18n/:locale", h.Catalog)
}

func (h *I18nHandler) Locales(c echo.Context) error {
	return c.JSON(http.StatusOK, localesResponse{Locales: i18n.Supported, Current: requestLocale(h.bundle, c)})
}

// Catalog returns the merged catalog of a locale and remembers the choice.
func (h *I18nHandler) Catalog(c echo.Context) error {
	locale := strings.ToLower(c.Param("locale"))
	messages, ok := h.bundle.Catalog(locale)
	if !ok {
		return Error(c, http.StatusNotFound, "unsupported locale")
	}
	setLangCookie(c, locale, h.cookies)
	return c.JSON(http.StatusOK, catalogResponse{Locale: locale, Messages: messages})
}

// requestLocale negotiates the locale of the request: lang query, then the
// lang cookie, then Accept-Language.
func requestLocale(bundle *i18n.Bundle, c echo.Context) string {
	if bundle == nil {
		return i18n.DefaultLocale
	}
	return bundle.Negotiate(
		c.QueryParam("lang"),
		cookieValue(c, LangCookieName),
		c.Request().Header.Get("Accept-Language"),
	)
}

func translate(bundle *i18n.Bundle, locale, key string, params map[string]string) string {
	if bundle == nil {
		return key
	}
	return bundle.Translate(locale, key, params)
}
