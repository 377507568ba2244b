package main

import (
	"context"
	"math/rand"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"satdice-backend/internal/config"
	"satdice-backend/internal/handlers"
	"satdice-backend/internal/lnbits"
	"satdice-backend/internal/middleware"
	"satdice-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	backend := lnbits.New(cfg.LNbitsURL, cfg.LNbitsInvoiceKey, cfg.LNbitsAdminKey)

	potService := services.NewPotService(backend)

	refresherCtx, stopRefresher := context.WithCancel(context.Background())
	defer stopRefresher()
	go potService.RunRefresher(refresherCtx, cfg.PotRefreshInterval)

	var roller services.Roller
	if cfg.FixedOutcome != 0 {
		log.Warn().Int("outcome", cfg.FixedOutcome).Msg("die pinned to a fixed outcome")
		roller = services.FixedRoller{Outcome: cfg.FixedOutcome}
	} else {
		roller = services.NewRandomRoller(rand.NewSource(time.Now().UnixNano()))
	}

	gameEngine := services.NewGameEngine(cfg, backend, potService, roller)
	defer gameEngine.Close()

	jwtService := services.NewJWTService(cfg)

	authHandler := handlers.NewAuthHandler(jwtService)
	gameHandler := handlers.NewGameHandler(gameEngine, potService)
	wsHandler := handlers.NewWebSocketHandler(gameEngine, potService)

	gameEngine.SetBroadcaster(wsHandler)
	potService.SetBroadcaster(wsHandler)

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.POST("/auth/session", authHandler.StartSession)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	{
		protected.GET("/ws", wsHandler.HandleWebSocket)
		protected.GET("/pot", gameHandler.GetPot)

		game := protected.Group("/game")
		{
			game.GET("", gameHandler.GetSession)
			game.POST("/guess", gameHandler.SelectGuess)
			game.POST("/payment/refresh", gameHandler.RefreshPayment)
			game.POST("/payout/retry", gameHandler.RetryPayout)
			game.POST("/reset", gameHandler.Reset)
		}
	}

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Info().Str("port", port).Msg("Server starting")
	if err := router.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}
