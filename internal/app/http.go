package app

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/initify/solarhook/internal/webhook"
)

// HealthMessage is the body served on GET /.
const HealthMessage = "Solar Webhook Server is running!"

// Header values forced onto every forwarded webhook request.
const (
	WebhookContentType = "application/json"
	WebhookUserAgent   = "dialogflow-webhook"
)

// NewRouter returns a Gin engine serving the health check and forwarding
// POST /webhook to h. Paths match case-insensitively and with or without a
// trailing slash.
func NewRouter(h webhook.Handler) *gin.Engine {
	r := gin.New()
	r.RedirectTrailingSlash = false
	r.Use(RequestLogger(), gin.CustomRecovery(recoverPanic), CORS(), BodyParser())

	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, HealthMessage) })
	r.POST("/webhook", forward(h))
	r.NoRoute(looseRoute(r))

	return r
}

// looseRoute retries an unmatched request against the lowercased path with
// any trailing slash removed. Requests that still match nothing get Gin's
// default 404.
func looseRoute(r *gin.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := strings.ToLower(strings.TrimRight(c.Request.URL.Path, "/"))
		if path == "" {
			path = "/"
		}
		if path == c.Request.URL.Path {
			return
		}
		for _, route := range r.Routes() {
			if route.Method == c.Request.Method && route.Path == path {
				c.Status(http.StatusOK)
				route.HandlerFunc(c)
				return
			}
		}
	}
}

func forward(h webhook.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Header.Set("Content-Type", WebhookContentType)
		c.Request.Header.Set("User-Agent", WebhookUserAgent)

		h.ServeWebhook(c.Writer, &webhook.Request{
			Header: c.Request.Header,
			Body:   ParsedBody(c),
			HTTP:   c.Request,
		})
	}
}

func recoverPanic(c *gin.Context, err any) {
	logrus.WithFields(logrus.Fields{
		"path":  c.Request.URL.Path,
		"panic": err,
	}).Error("handler panicked")
	c.AbortWithStatus(http.StatusInternalServerError)
}

// RouterFromEnv creates a Server from env and returns its Gin router.
func RouterFromEnv() (http.Handler, error) {
	srv, err := ServerFromEnv()
	if err != nil {
		return nil, err
	}
	return srv.Handler(), nil
}
