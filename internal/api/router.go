package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handlers) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	router.Post("/devices", h.RegisterDevice)
	router.Post("/devices/{deviceID}/actions", h.LogDeviceAction)
	router.Post("/activate", h.ActivateDevice)

	router.Post("/scan", h.RecordScan)
	router.Get("/codes/{codeID}/stats", h.CodeStats)
	router.Get("/codes/{codeID}/tree", h.CodeTree)

	router.Post("/payloads", h.StorePayload)
	router.Post("/geofence/check", h.GeofenceCheck)

	return router
}
