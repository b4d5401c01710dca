package dashboard

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers dashboard routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/login", h.Login)

	r.Route("/dashboard", func(r chi.Router) {
		r.Get("/snapshot", h.Snapshot)
		r.Post("/refresh", h.Refresh)
		r.Get("/upstream-health", h.UpstreamHealth)

		r.Get("/users", h.Users)
		r.Route("/users/{id}", func(r chi.Router) {
			r.Get("/sessions", h.UserSessions)
			r.Post("/ignore", h.UpdateIgnore)
			r.Post("/notes", h.UpdateNotes)
			r.Post("/extension-version", h.UpdateExtensionVersion)
		})

		r.Route("/populate", func(r chi.Router) {
			r.Post("/test", h.TestPopulate)
			r.Post("/start", h.StartPopulate)
			r.Get("/{job_id}", h.PopulateJob)
			r.Post("/{job_id}/cancel", h.CancelPopulateJob)
		})

		r.Get("/reports/clinical-notes", h.ClinicalNotesReport)
		r.Post("/outreach/email", h.SendOutreachEmail)
	})
}
