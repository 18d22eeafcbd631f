package http

import (
	_ "embed"
	"fmt"
	"html"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed assets/index.html
var indexHTML []byte

const htmlContentType = "text/html; charset=utf-8"

// PageRenderer renders every request that is not an API route.
type PageRenderer interface {
	Render(c *gin.Context)
}

// Pages serves the ncube page at the root and an error page elsewhere.
type Pages struct{}

// Render implements PageRenderer.
func (Pages) Render(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		ErrorPage(c, http.StatusNotFound)
		return
	}
	switch c.Request.URL.Path {
	case "/", "/index.html":
		c.Data(http.StatusOK, htmlContentType, indexHTML)
	default:
		ErrorPage(c, http.StatusNotFound)
	}
}

// ErrorPage writes the plain error page for status.
func ErrorPage(c *gin.Context, status int) {
	msg := "500 Internal Error"
	if status == http.StatusNotFound {
		msg = "404 Page Not Found"
	}
	body := fmt.Sprintf(`<!doctype html><html><head><meta charset="utf-8"><title>ncube</title></head>`+
		`<body style="display:flex;height:100vh;align-items:center;justify-content:center;font:20px monospace">`+
		`<div>%s</div></body></html>`, html.EscapeString(msg))
	c.Data(status, htmlContentType, []byte(body))
}

// Recovery renders the 500 page for panics.
func Recovery(c *gin.Context, _ any) {
	ErrorPage(c, http.StatusInternalServerError)
	c.Abort()
}
