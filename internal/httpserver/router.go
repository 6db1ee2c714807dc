package httpserver

import (
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/listellodavide/onion-factory/internal/ai"
	"github.com/listellodavide/onion-factory/internal/auth"
	"github.com/listellodavide/onion-factory/internal/gateway/sumup"
	cartsvc "github.com/listellodavide/onion-factory/internal/service/cart"
	ordersvc "github.com/listellodavide/onion-factory/internal/service/order"
	paymentsvc "github.com/listellodavide/onion-factory/internal/service/payment"
	productsvc "github.com/listellodavide/onion-factory/internal/service/product"
	usersvc "github.com/listellodavide/onion-factory/internal/service/user"
)

// Deps carries the wired services the router exposes. Nil entries disable
// the corresponding route group so partial deployments still boot.
type Deps struct {
	Users    *usersvc.Service
	Products *productsvc.Service
	Carts    *cartsvc.Service
	Orders   *ordersvc.Service
	Payments *paymentsvc.Service
	SumUp    *sumup.Client
	AI       *ai.Client
	OAuth    *auth.OAuth
	Sessions *auth.Sessions

	CORSOrigins []string
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	router.Use(metricsMiddleware())

	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if deps.Users != nil {
		h := &userHandlers{users: deps.Users, sessions: deps.Sessions}
		users := router.Group("/users")
		users.GET("", h.list)
		users.POST("", h.create)
		users.GET("/search", h.search)
		users.GET("/email", h.getByEmail)
		users.GET("/username/:username", h.getByUsername)
		users.GET("/:id", h.get)
		users.PUT("/:id", h.update)
		users.DELETE("/:id", h.delete)

		me := users.Group("/me", requireSession(deps.Sessions))
		me.GET("", h.me)
		me.GET("/provider", h.meProvider)
		users.POST("/ensure-from-me", requireSession(deps.Sessions), h.ensureFromMe)

		if deps.Carts != nil {
			ch := &cartHandlers{carts: deps.Carts}
			cart := users.Group("/:id/cart")
			cart.GET("", ch.get)
			cart.DELETE("", ch.empty)
			cart.POST("/items", ch.addItem)
			cart.DELETE("/items/:productId", ch.removeItem)
			cart.POST("/checkout", ch.checkout)
		}
	}

	if deps.Products != nil {
		h := &productHandlers{products: deps.Products}
		products := router.Group("/products")
		products.GET("", h.list)
		products.POST("", h.create)
		products.GET("/search", h.search)
		products.GET("/:id", h.get)
		products.PUT("/:id", h.update)
		products.DELETE("/:id", h.delete)
	}

	if deps.Orders != nil {
		h := &orderHandlers{orders: deps.Orders}
		orders := router.Group("/orders")
		orders.GET("", h.list)
		orders.POST("", h.create)
		orders.GET("/user/:userId", h.listByUser)
		orders.GET("/:id", h.get)
		orders.PUT("/:id", h.update)
		orders.GET("/:id/items", h.listItems)
	}

	api := router.Group("/api")

	if deps.Payments != nil {
		h := &paymentHandlers{payments: deps.Payments}
		payments := api.Group("/payments")
		payments.POST("/create-intent", h.createIntent)
		payments.POST("/confirm", h.confirm)
		payments.POST("/create-checkout", h.createCheckout)
		payments.POST("/webhook", h.webhook)
	}

	if deps.SumUp != nil {
		h := &sumupHandlers{client: deps.SumUp, logger: logger}
		su := api.Group("/sumup")
		su.POST("/checkout", h.createCheckout)
		su.GET("/checkout/:id", h.getCheckout)
		su.PUT("/checkout/:id", h.processCheckout)
		su.DELETE("/checkout/:id", h.deactivateCheckout)
		su.GET("/payment-methods", h.paymentMethods)
		su.POST("/webhook", h.webhook)
	}

	if deps.AI != nil {
		h := &aiHandlers{client: deps.AI}
		api.POST("/ai/chat", h.chat)
	}

	if deps.OAuth != nil && deps.Sessions != nil && deps.Users != nil {
		h := &authHandlers{oauth: deps.OAuth, sessions: deps.Sessions, users: deps.Users, logger: logger}
		router.GET("/auth/login/:provider", h.login)
		router.GET("/auth/callback/:provider", h.callback)
	}

	return router, nil
}
