package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/listellodavide/onion-factory/internal/ai"
	"github.com/listellodavide/onion-factory/internal/auth"
	"github.com/listellodavide/onion-factory/internal/config"
	"github.com/listellodavide/onion-factory/internal/db"
	"github.com/listellodavide/onion-factory/internal/events"
	stripegw "github.com/listellodavide/onion-factory/internal/gateway/stripe"
	sumupgw "github.com/listellodavide/onion-factory/internal/gateway/sumup"
	"github.com/listellodavide/onion-factory/internal/httpserver"
	cartrepo "github.com/listellodavide/onion-factory/internal/repository/cart"
	orderrepo "github.com/listellodavide/onion-factory/internal/repository/order"
	productrepo "github.com/listellodavide/onion-factory/internal/repository/product"
	userrepo "github.com/listellodavide/onion-factory/internal/repository/user"
	cartsvc "github.com/listellodavide/onion-factory/internal/service/cart"
	ordersvc "github.com/listellodavide/onion-factory/internal/service/order"
	paymentsvc "github.com/listellodavide/onion-factory/internal/service/payment"
	productsvc "github.com/listellodavide/onion-factory/internal/service/product"
	usersvc "github.com/listellodavide/onion-factory/internal/service/user"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	publisher := events.Publisher(events.Noop())
	if cfg.AMQPURL != "" {
		amqpPub, err := events.NewAMQP(cfg.AMQPURL, cfg.OrderExchange, logger)
		if err != nil {
			logger.Fatalf("connect to amqp: %v", err)
		}
		publisher = amqpPub
	}
	defer publisher.Close()

	productRepo := productrepo.NewPostgres(dbpool, logger)
	userRepo := userrepo.NewPostgres(dbpool, logger)
	cartRepo := cartrepo.NewPostgres(dbpool)
	orderRepo := orderrepo.NewPostgres(dbpool, logger)

	productService := productsvc.New(productRepo)
	userService := usersvc.New(userRepo)
	orderService := ordersvc.New(orderRepo, productRepo, userRepo, publisher, logger)
	cartService := cartsvc.New(cartRepo, productRepo, orderService)

	stripeClient := stripegw.NewClient(cfg.StripeSecretKey, cfg.StripeBaseURL, logger)
	paymentService := paymentsvc.New(stripeClient, orderService,
		cfg.OAuthRedirectBase+"/checkout/success", cfg.OAuthRedirectBase+"/checkout/cancel", logger)
	sumupClient := sumupgw.NewClient(cfg.SumUpAPIKey, cfg.SumUpBaseURL, cfg.SumUpMerchantCode, logger)

	oauth := auth.NewOAuth(auth.ProviderCredentials{
		GoogleClientID:     cfg.GoogleClientID,
		GoogleClientSecret: cfg.GoogleClientSecret,
		GithubClientID:     cfg.GithubClientID,
		GithubClientSecret: cfg.GithubClientSecret,
		RedirectBase:       cfg.OAuthRedirectBase,
	})
	sessions := auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL)
	aiClient := ai.NewClient(cfg.AIBaseURL, cfg.AIModel, cfg.AIMaxInflight, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Users:       userService,
		Products:    productService,
		Carts:       cartService,
		Orders:      orderService,
		Payments:    paymentService,
		SumUp:       sumupClient,
		AI:          aiClient,
		OAuth:       oauth,
		Sessions:    sessions,
		CORSOrigins: strings.Split(cfg.CORSOrigins, ","),
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
