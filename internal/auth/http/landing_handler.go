package http

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	authUseCase "github.com/allisson/gatekeeper/internal/auth/usecase"
	"github.com/allisson/gatekeeper/internal/httputil"
)

var landingTemplate = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html>
<head><title>Gatekeeper</title></head>
<body>
<h1>Gatekeeper</h1>
{{if .SignedIn}}
<p>Signed in as {{.Email}}.</p>
{{if .Key}}
<p>Your API key:</p>
<pre>{{.Key}}</pre>
{{else}}
<p>No API key issued yet. POST to /auth/token to create one.</p>
{{end}}
<p><a href="/signout">Sign out</a></p>
{{else}}
<p><a href="/signin">Sign in</a> to get an API key.</p>
{{end}}
</body>
</html>
`))

// landingData is the template input for the landing page.
type landingData struct {
	SignedIn bool
	Email    string
	Key      string
}

// LandingHandler serves the public landing page.
type LandingHandler struct {
	authUseCase authUseCase.AuthUseCase
	logger      *slog.Logger
}

// NewLandingHandler creates a new landing page handler.
func NewLandingHandler(useCase authUseCase.AuthUseCase, logger *slog.Logger) *LandingHandler {
	return &LandingHandler{authUseCase: useCase, logger: logger}
}

// IndexHandler renders the landing page.
// GET / - public; shows the caller's current API key only when signed in.
//
// The displayed key is re-derived from the stored freshness timestamp, not
// rotated: reloading the page never invalidates existing keys.
func (h *LandingHandler) IndexHandler(c *gin.Context) {
	data := landingData{}

	if principal, ok := GetPrincipal(c.Request.Context()); ok && principal.IsAuthenticated() {
		key, err := h.authUseCase.CurrentToken(principal.User)
		if err != nil {
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}

		data.SignedIn = true
		data.Email = principal.User.Email
		data.Key = key
	}

	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")

	if err := landingTemplate.Execute(c.Writer, data); err != nil {
		h.logger.Error("failed to render landing page", slog.Any("error", err))
	}
}
