package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-backoffice/internal/middleware"
	"github.com/ukydev/fleet-backoffice/internal/models"
)

// RouterConfig collects everything the router wires together.
type RouterConfig struct {
	Auth          *AuthHandler
	Fuel          *FuelHandler
	Fleet         *FleetHandler
	Notifications *NotificationHandler

	AuthMiddleware *middleware.AuthMiddleware
	RateLimiter    *middleware.RateLimitMiddleware
	CORSOrigins    []string
	Logger         *logrus.Logger
}

// NewRouter creates the API router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.RateLimit)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	authn := cfg.AuthMiddleware
	can := authn.RequirePermission

	r.Route("/api", func(r chi.Router) {
		r.Use(authn.Authenticate)

		// Auth routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", cfg.Auth.Login)
			r.Post("/register", cfg.Auth.Register)
			r.Get("/profile", cfg.Auth.GetProfile)
			r.Put("/profile", cfg.Auth.UpdateProfile)
			r.Post("/password", cfg.Auth.ChangePassword)
		})

		r.With(can(models.ActionManageUsers)).Get("/users", cfg.Auth.ListUsers)
		r.With(can(models.ActionManageUsers)).Post("/users", cfg.Auth.CreateUser)

		// Fuel card routes
		r.Route("/fuel-cards", func(r chi.Router) {
			r.With(can(models.ActionViewFuel)).Get("/", cfg.Fuel.ListCards)
			r.With(can(models.ActionManageFuel)).Post("/", cfg.Fuel.CreateCard)
			r.Route("/{id}", func(r chi.Router) {
				r.With(can(models.ActionViewFuel)).Get("/", cfg.Fuel.GetCard)
				r.With(can(models.ActionManageFuel)).Put("/", cfg.Fuel.UpdateCard)
				r.With(can(models.ActionManageFuel)).Delete("/", cfg.Fuel.DeleteCard)
				r.With(can(models.ActionViewFuel)).Get("/balance", cfg.Fuel.CardBalance)
				r.With(can(models.ActionViewFuel)).Get("/operations", cfg.Fuel.CardOperations)
				r.With(can(models.ActionViewFuel)).Get("/verify", cfg.Fuel.VerifyCard)
			})
		})

		// Fuel ledger routes
		r.Route("/fuel-operations", func(r chi.Router) {
			r.With(can(models.ActionViewFuel)).Get("/", cfg.Fuel.ListOperations)
			r.With(can(models.ActionManageFuel)).Post("/", cfg.Fuel.CreateOperation)
			r.With(can(models.ActionViewFuel)).Get("/{id}", cfg.Fuel.GetOperation)
			r.With(can(models.ActionManageFuel)).Put("/{id}", cfg.Fuel.UpdateOperation)
			r.With(can(models.ActionManageFuel)).Delete("/{id}", cfg.Fuel.DeleteOperation)
		})

		// Fleet routes
		fleetRoutes(r, "/drivers", can, cfg.Fleet.ListDrivers, cfg.Fleet.CreateDriver,
			cfg.Fleet.GetDriver, cfg.Fleet.UpdateDriver, cfg.Fleet.DeleteDriver)
		fleetRoutes(r, "/vehicles", can, cfg.Fleet.ListVehicles, cfg.Fleet.CreateVehicle,
			cfg.Fleet.GetVehicle, cfg.Fleet.UpdateVehicle, cfg.Fleet.DeleteVehicle)
		fleetRoutes(r, "/reservoirs", can, cfg.Fleet.ListReservoirs, cfg.Fleet.CreateReservoir,
			cfg.Fleet.GetReservoir, cfg.Fleet.UpdateReservoir, cfg.Fleet.DeleteReservoir)
		fleetRoutes(r, "/maintenance", can, cfg.Fleet.ListMaintenance, cfg.Fleet.CreateMaintenance,
			cfg.Fleet.GetMaintenance, cfg.Fleet.UpdateMaintenance, cfg.Fleet.DeleteMaintenance)

		// Notification routes, scoped to the caller
		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", cfg.Notifications.List)
			r.Get("/unread-count", cfg.Notifications.UnreadCount)
			r.With(can(models.ActionRunChecks)).Post("/check", cfg.Notifications.Check)
			r.Put("/{id}/read", cfg.Notifications.MarkRead)
			r.Delete("/{id}", cfg.Notifications.Delete)
		})
	})

	return r
}

// fleetRoutes mounts the CRUD routes of one fleet entity.
func fleetRoutes(r chi.Router, pattern string, can func(string) func(http.Handler) http.Handler,
	list, create, get, update, remove http.HandlerFunc) {
	r.Route(pattern, func(r chi.Router) {
		r.With(can(models.ActionViewFleet)).Get("/", list)
		r.With(can(models.ActionManageFleet)).Post("/", create)
		r.With(can(models.ActionViewFleet)).Get("/{id}", get)
		r.With(can(models.ActionManageFleet)).Put("/{id}", update)
		r.With(can(models.ActionManageFleet)).Delete("/{id}", remove)
	})
}
