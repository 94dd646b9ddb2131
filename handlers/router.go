package handlers

import (
	"net/http"

	"timekeeper/config"
	"timekeeper/hours"
	"timekeeper/middleware"
	"timekeeper/models"
	"timekeeper/services"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"
	"gorm.io/gorm"
)

// Services bundles what the handlers need. NewServices fills it from a
// database and a jurisdiction registry.
type Services struct {
	Timesheets    *services.Timesheets
	Expenses      *services.Expenses
	Reports       *services.Reports
	Notifications *services.Notifications
}

func NewServices(db *gorm.DB, registry *hours.Registry) *Services {
	return &Services{
		Timesheets:    services.NewTimesheets(db, registry),
		Expenses:      services.NewExpenses(db),
		Reports:       services.NewReports(db),
		Notifications: services.NewNotifications(db),
	}
}

// NewRouter mounts the JSON API. loginLimiter may be nil to disable rate
// limiting on the sign-in endpoints.
func NewRouter(cfg *config.Config, db *gorm.DB, svc *Services, loginLimiter *limiter.Limiter) http.Handler {
	authHandler := NewAuthHandler(cfg, db)
	timesheetHandler := NewTimesheetHandler(svc.Timesheets)
	expenseHandler := NewExpenseHandler(svc.Expenses)
	reportHandler := NewReportHandler(svc.Reports)
	notificationHandler := NewNotificationHandler(svc.Notifications)
	employeeHandler := NewEmployeeHandler(db, svc.Timesheets)
	clientHandler := NewClientHandler(db)
	managerHandler := NewManagerHandler(db)

	router := chi.NewRouter()
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.RequestLogger)
	router.Use(chimiddleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(r.Context())
		}
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api", func(r chi.Router) {
		// Public routes
		r.Group(func(r chi.Router) {
			if loginLimiter != nil {
				r.Use(middleware.RateLimit(loginLimiter))
			}
			r.Post("/login", authHandler.Login)
			r.Post("/register", authHandler.Register)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(db))

			r.Post("/logout", authHandler.Logout)
			r.Post("/change-password", authHandler.ChangePassword)
			r.Get("/me", authHandler.Me)

			// Routes that require password to be changed first
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePasswordChange())

				r.Route("/timesheets", func(r chi.Router) {
					r.Get("/", timesheetHandler.List)
					r.Post("/", timesheetHandler.Save)
					r.Post("/preview", timesheetHandler.Preview)
					r.Get("/{id}", timesheetHandler.Get)
					r.Delete("/{id}", timesheetHandler.Delete)
					r.Post("/{id}/approve", timesheetHandler.Approve)
					r.Post("/{id}/reject", timesheetHandler.Reject)
					r.With(middleware.RequireRole(models.RoleAdmin)).Post("/{id}/recalculate", timesheetHandler.Recalculate)
				})

				r.Route("/expenses", func(r chi.Router) {
					r.Get("/", expenseHandler.List)
					r.Post("/", expenseHandler.Create)
					r.Get("/categories", expenseHandler.Categories)
					r.Get("/{id}", expenseHandler.Get)
					r.Put("/{id}", expenseHandler.Update)
					r.Delete("/{id}", expenseHandler.Delete)
					r.Post("/{id}/approve", expenseHandler.Approve)
					r.Post("/{id}/reject", expenseHandler.Reject)
				})

				r.Get("/notifications", notificationHandler.List)
				r.Post("/notifications/{id}/read", notificationHandler.MarkRead)

				r.Get("/clients", clientHandler.ListClients)
				r.Get("/projects", clientHandler.ListProjects)

				// Admin and manager routes
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(models.RoleAdmin, models.RoleManager))
					r.Get("/reports/timesheets", reportHandler.Timesheets)
					r.Get("/reports/expenses", reportHandler.Expenses)
					r.Get("/export/timesheets", reportHandler.ExportTimesheets)
					r.Get("/export/expenses", reportHandler.ExportExpenses)
				})

				// Admin only routes
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(models.RoleAdmin))
					r.Get("/invites", authHandler.ListInvites)
					r.Post("/invites", authHandler.CreateInvite)

					r.Get("/employees", employeeHandler.List)
					r.Post("/employees", employeeHandler.Create)
					r.Get("/employees/{id}", employeeHandler.Get)
					r.Patch("/employees/{id}", employeeHandler.Update)
					r.Post("/employees/{id}/reset-password", employeeHandler.ResetPassword)

					r.Post("/clients", clientHandler.CreateClient)
					r.Put("/clients/{id}", clientHandler.UpdateClient)
					r.Post("/projects", clientHandler.CreateProject)
					r.Put("/projects/{id}", clientHandler.UpdateProject)

					r.Get("/managers", managerHandler.List)
					r.Post("/managers", managerHandler.Assign)
					r.Delete("/managers/{id}", managerHandler.Unassign)
				})
			})
		})
	})

	return router
}
