package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/example/stock-ledger/internal/api/middleware"
)

func NewRouter(handlers *Handlers, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Tracing)

	r.Get("/healthz", handlers.Health)

	r.Route("/api/v1", func(r chi.Router) {
		// Stock
		r.Route("/stocks", func(r chi.Router) {
			r.Post("/add", handlers.AddStock)
			r.Post("/adjust", handlers.AdjustStock)
			r.Post("/transfer", handlers.TransferStock)
			r.Post("/reserve", handlers.ReserveStock)
			r.Post("/release", handlers.ReleaseStock)
			r.Post("/fulfill", handlers.FulfillStock)
			r.Get("/low", handlers.ListLowStock)
			r.Get("/{variantID}", handlers.ListStockByVariant)
			r.Get("/{variantID}/available", handlers.GetTotalAvailable)
			r.Get("/{variantID}/transactions", handlers.ListTransactions)
			r.Get("/{variantID}/{locationID}", handlers.GetStock)
			r.Put("/{variantID}/{locationID}/thresholds", handlers.SetStockThresholds)
		})

		// Reservations
		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", handlers.CreateReservation)
			r.Get("/", handlers.ListReservations)
			r.Post("/settle", handlers.SettleExpiredReservations)
			r.Get("/{id}", handlers.GetReservation)
			r.Post("/{id}/cancel", handlers.CancelReservation)
			r.Post("/{id}/extend", handlers.ExtendReservation)
			r.Post("/{id}/fulfill", handlers.FulfillReservation)
			r.Post("/{id}/expire", handlers.ExpireReservation)
		})

		// Purchase orders
		r.Route("/purchase-orders", func(r chi.Router) {
			r.Post("/", handlers.CreatePurchaseOrder)
			r.Get("/{id}", handlers.GetPurchaseOrder)
			r.Delete("/{id}", handlers.DeletePurchaseOrder)
			r.Put("/{id}/status", handlers.UpdatePurchaseOrderStatus)
			r.Post("/{id}/receive", handlers.ReceivePurchaseOrderItems)
			r.Post("/{id}/items", handlers.AddPurchaseOrderItem)
			r.Put("/{id}/items/{itemID}", handlers.UpdatePurchaseOrderItem)
			r.Delete("/{id}/items/{itemID}", handlers.RemovePurchaseOrderItem)
		})

		// Alerts
		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", handlers.ListActiveAlerts)
			r.Post("/", handlers.CreateAlert)
			r.Post("/check", handlers.CheckAlerts)
			r.Get("/{id}", handlers.GetAlert)
			r.Post("/{id}/resolve", handlers.ResolveAlert)
		})
	})

	return r
}
