package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dossier/recouvrement/internal/cases"
	"github.com/dossier/recouvrement/internal/ingestion"
	"github.com/dossier/recouvrement/internal/reconciliation"
	"github.com/dossier/recouvrement/internal/repository"
)

// ActorHeader carries the id of the authenticated user making the request.
const ActorHeader = "X-Actor-ID"

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Cases       *repository.CaseRepo
	Payments    *repository.PaymentRepo
	CaseSvc     *cases.Service
	Recon       *reconciliation.Service
	Ingestion   *ingestion.Service
	Idempotency ReplayStore
}

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(d Deps) http.Handler {
	h := &Handlers{
		cases:     d.Cases,
		payments:  d.Payments,
		caseSvc:   d.CaseSvc,
		recon:     d.Recon,
		ingestion: d.Ingestion,
		idem:      d.Idempotency,
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Route("/api/v1", func(r chi.Router) {
		// Reads.
		r.Get("/cases", h.ListCases)
		r.Get("/cases/{id}", h.GetCase)
		r.Get("/cases/{id}/payments", h.ListCasePayments)
		r.Get("/payments/{id}", h.GetPayment)
		r.Get("/dashboard", h.GetDashboard)

		// Writes are attributed to the calling actor.
		r.Group(func(r chi.Router) {
			r.Use(requireActor)

			r.Post("/cases", h.CreateCase)
			r.Post("/cases/{id}/payments", h.RecordPayment)
			r.Put("/payments/{id}", h.UpdatePayment)
			r.Delete("/payments/{id}", h.DeletePayment)
			r.Post("/imports", h.ImportStatement)
		})
	})

	return r
}

type ctxKey int

const actorKey ctxKey = iota

func requireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := strings.TrimSpace(r.Header.Get(ActorHeader))
		if actor == "" {
			writeError(w, http.StatusUnauthorized, ActorHeader+" header is required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, actor)))
	})
}

func actorFrom(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey).(string)
	return actor
}
