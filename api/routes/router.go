package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/api/controllers"
	chatcontrollers "github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/api/controllers/chat"
	ordercontrollers "github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/api/controllers/orders"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/api/middleware"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/internal/chat"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/internal/orders"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/auth/session"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/config"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/enums"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/logger"
	pkgredis "github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/redis"
)

// RedisStore is the slice of the redis client the HTTP surface relies on.
type RedisStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

// Gateway serves websocket connections and fans out HTTP chat activity.
type Gateway interface {
	controllers.RealtimeServer
	chatcontrollers.Broadcaster
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbPinger controllers.Pinger,
	redisStore RedisStore,
	sessionChecker session.AccessSessionChecker,
	gatherer prometheus.Gatherer,
	chatService chat.Service,
	ordersService orders.Service,
	gateway Gateway,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.Realtime.AllowedOrigins),
	)

	chatPolicy := middleware.NewRateLimitPolicy(pkgredis.RateLimitChatMessage, cfg.RateLimit.ChatMessageWindow, cfg.RateLimit.ChatMessageLimit)
	orderPolicy := middleware.NewRateLimitPolicy(pkgredis.RateLimitOrderCreate, cfg.RateLimit.OrderCreateWindow, cfg.RateLimit.OrderCreateLimit)
	idempotent := func(policy middleware.IdempotencyPolicy) func(http.Handler) http.Handler {
		return middleware.Idempotency(policy, redisStore, logg)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbPinger, redisStore))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))

		r.Get("/ws", controllers.Realtime(gateway, logg))

		r.Route("/chat", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleCustomer, enums.ActorRoleVendor))

			r.Get("/unread", chatcontrollers.Unread(chatService, logg))
			r.Route("/conversations", func(r chi.Router) {
				r.With(middleware.RequireRole(logg, enums.ActorRoleCustomer), idempotent(middleware.OptionalIdempotency("chat_start", middleware.ReplayTTL))).
					Post("/", chatcontrollers.Start(chatService, gateway, logg))
				r.Get("/", chatcontrollers.List(chatService, logg))
				r.Get("/{id}", chatcontrollers.Detail(chatService, logg))
				r.With(middleware.RateLimit(chatPolicy, redisStore, logg), idempotent(middleware.OptionalIdempotency("chat_message", middleware.ReplayTTL))).
					Post("/{id}/messages", chatcontrollers.Send(chatService, gateway, logg))
				r.Put("/{id}/read", chatcontrollers.MarkRead(chatService, gateway, logg))
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.RateLimit(orderPolicy, redisStore, logg), idempotent(middleware.RequiredIdempotency("order_create", middleware.CriticalReplayTTL))).
				Post("/", ordercontrollers.Create(ordersService, logg))
			r.Get("/my-orders", ordercontrollers.MyOrders(ordersService, logg))
			r.Get("/my-stats", ordercontrollers.MyStats(ordersService, logg))
			r.Get("/track/{orderNumber}", ordercontrollers.Track(ordersService, logg))
			r.Get("/{id}", ordercontrollers.Detail(ordersService, logg))
			r.With(idempotent(middleware.RequiredIdempotency("order_cancel", middleware.CriticalReplayTTL))).Put("/{id}/cancel", ordercontrollers.Cancel(ordersService, logg))
		})

		r.Route("/admin/orders", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleAdmin))

			r.Get("/", ordercontrollers.AdminList(ordersService, logg))
			r.Get("/stats", ordercontrollers.AdminStats(ordersService, logg))
			r.Get("/recent", ordercontrollers.AdminRecent(ordersService, logg))
			r.Get("/{id}", ordercontrollers.Detail(ordersService, logg))
			r.Put("/{id}/status", ordercontrollers.AdminUpdateStatus(ordersService, logg))
			r.Put("/{id}/payment-status", ordercontrollers.AdminUpdatePaymentStatus(ordersService, logg))
			r.Put("/{id}/financials", ordercontrollers.AdminUpdateFinancials(ordersService, logg))
			r.Delete("/{id}", ordercontrollers.AdminDelete(ordersService, logg))
		})
	})

	return r
}
