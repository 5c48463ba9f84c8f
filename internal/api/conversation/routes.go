package conversation

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers conversation routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/conversations", func(r chi.Router) {
		r.Post("/", h.CreateConversation)

		r.Route("/{conversation_id}", func(r chi.Router) {
			r.Get("/", h.GetConversation)
			r.Delete("/", h.DeleteConversation)
			r.Post("/messages", h.SubmitMessage)

			r.Route("/messages/{message_id}", func(r chi.Router) {
				r.Get("/export", h.ExportMessage)

				r.Route("/quiz", func(r chi.Router) {
					r.Get("/", h.GetQuiz)
					r.Delete("/", h.CloseQuiz)
					r.Post("/select", h.SelectOption)
					r.Post("/advance", h.AdvanceQuiz)
				})
			})
		})
	})
}
