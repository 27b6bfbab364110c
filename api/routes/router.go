package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mozz-online/mozz-backend/api/controllers"
	"github.com/mozz-online/mozz-backend/api/middleware"
	"github.com/mozz-online/mozz-backend/api/responses"
	"github.com/mozz-online/mozz-backend/internal/auth"
	"github.com/mozz-online/mozz-backend/internal/invitations"
	"github.com/mozz-online/mozz-backend/internal/memberships"
	"github.com/mozz-online/mozz-backend/internal/pizzas"
	"github.com/mozz-online/mozz-backend/internal/stores"
	"github.com/mozz-online/mozz-backend/internal/toppings"
	"github.com/mozz-online/mozz-backend/pkg/auth/session"
	"github.com/mozz-online/mozz-backend/pkg/config"
	pkgerrors "github.com/mozz-online/mozz-backend/pkg/errors"
	"github.com/mozz-online/mozz-backend/pkg/logger"
	"github.com/mozz-online/mozz-backend/pkg/metrics"
	pkgredis "github.com/mozz-online/mozz-backend/pkg/redis"
)

// Deps is everything the HTTP surface is wired from. RateLimiter and
// Idempotency may be nil, which disables those middlewares.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Sessions    session.Checker
	RateLimiter pkgredis.RateLimiter
	Idempotency pkgredis.IdempotencyStore
	Roles       middleware.MembershipChecker

	Auth        auth.Service
	Invitations invitations.Service
	Stores      stores.Service
	Members     memberships.Service
	Toppings    toppings.Service
	Pizzas      pizzas.Service

	ReadyChecks map[string]controllers.Pinger
	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer
	Now         func() time.Time
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Recoverer(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
		middleware.Metrics(d.HTTPMetrics),
	)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeMethodNotAllow, "method not allowed"))
	})

	loginPolicy := middleware.LoginRateLimitPolicy(cfg.AuthRateLimit)
	signupPolicy := middleware.SignupRateLimitPolicy(cfg.AuthRateLimit)
	loginLimit := middleware.AuthRateLimit(loginPolicy, d.RateLimiter, logg)
	signupLimit := middleware.AuthRateLimit(signupPolicy, d.RateLimiter, logg)
	requireAuth := middleware.Auth(cfg.JWT, d.Sessions, logg)
	idempotent := middleware.Idempotency(d.Idempotency, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", controllers.HealthLive(cfg.App, d.Now))
		r.Get("/ready", controllers.HealthReady(cfg.App, d.ReadyChecks, logg))
	})
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/invitations", func(r chi.Router) {
		r.With(middleware.OptionalAuth(cfg.JWT, d.Sessions, logg), idempotent).
			Post("/", controllers.InvitationCreate(d.Invitations, logg))
		r.With(signupLimit).Post("/accept/signup", controllers.InvitationAcceptSignup(d.Invitations, logg))
		r.With(loginLimit).Post("/accept/signin", controllers.InvitationAcceptSignin(d.Invitations, logg))
		r.With(requireAuth).Post("/accept", controllers.InvitationAccept(d.Invitations, logg))
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.With(signupLimit).Post("/signup", controllers.AuthSignUp(d.Auth, logg))
		r.With(loginLimit).Post("/login", controllers.AuthLogin(d.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(d.Auth, logg))
		r.With(requireAuth).Post("/logout", controllers.AuthLogout(d.Auth, logg))
		r.With(requireAuth).Get("/session", controllers.AuthSession(d.Auth, logg))
	})

	r.Route("/api/stores", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", controllers.StoresList(d.Stores, logg))
		r.With(idempotent).Post("/", controllers.StoreCreate(d.Stores, logg))

		r.Route("/{storeId}", func(r chi.Router) {
			r.Use(middleware.RequireStoreRoles(d.Roles, logg))
			r.Get("/", controllers.StoreGet(d.Stores, logg))
			r.Patch("/", controllers.StoreUpdate(d.Stores, logg))
			r.Delete("/", controllers.StoreDelete(d.Stores, logg))

			r.Route("/members", func(r chi.Router) {
				r.Get("/", controllers.MembersList(d.Members, logg))
				r.Get("/me", controllers.MemberMe(d.Members, logg))
				r.Delete("/", controllers.MemberRemove(d.Members, logg))
			})

			r.Route("/toppings", func(r chi.Router) {
				r.Get("/", controllers.ToppingsList(d.Toppings, logg))
				r.With(idempotent).Post("/", controllers.ToppingCreate(d.Toppings, logg))
				r.Put("/{toppingId}", controllers.ToppingUpdate(d.Toppings, logg))
				r.Delete("/{toppingId}", controllers.ToppingDelete(d.Toppings, logg))
			})

			r.Route("/pizzas", func(r chi.Router) {
				r.Get("/", controllers.PizzasList(d.Pizzas, logg))
				r.With(idempotent).Post("/", controllers.PizzaCreate(d.Pizzas, logg))
				r.Get("/{pizzaId}", controllers.PizzaGet(d.Pizzas, logg))
				r.Put("/{pizzaId}", controllers.PizzaUpdate(d.Pizzas, logg))
				r.Delete("/{pizzaId}", controllers.PizzaDelete(d.Pizzas, logg))
			})
		})
	})

	return r
}
