package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	custommiddleware "github.com/mateotillmann/elismeres-w3/internal/middleware"
)

func pathID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// SetupRouter configures the HTTP routes and middleware of the service.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Use(h.sessions.Middleware)

		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)

		r.Get("/quota", h.GetQuota)

		r.Route("/cards", func(r chi.Router) {
			r.Post("/", h.IssueCard)
			r.Get("/", h.ListCards)
			r.Get("/{id}", h.GetCard)
			r.Post("/{id}/redeem", h.RedeemCard)
			r.Delete("/{id}", h.DeleteCard)
		})

		r.Route("/employees", func(r chi.Router) {
			r.Post("/", h.AddEmployee)
			r.Get("/", h.ListEmployees)
			r.Get("/{id}", h.GetEmployee)
			r.Put("/{id}", h.UpdateEmployee)
			r.Get("/{id}/cards", h.EmployeeCards)
			r.Delete("/{id}", h.RemoveEmployee)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
