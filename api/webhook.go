package handler

import (
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/initify/solarhook/internal/app"
)

var (
	routerOnce sync.Once
	router     http.Handler
	routerErr  error
)

// Handler is the Vercel serverless function entrypoint. The router is built
// once per warm instance so session memory survives between invocations.
func Handler(w http.ResponseWriter, r *http.Request) {
	routerOnce.Do(func() {
		router, routerErr = app.RouterFromEnv()
		if routerErr != nil {
			logrus.WithError(routerErr).Error("gateway setup failed")
		}
	})
	if routerErr != nil {
		http.Error(w, "config error", http.StatusInternalServerError)
		return
	}
	router.ServeHTTP(w, r)
}
