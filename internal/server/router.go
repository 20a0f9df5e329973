package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"solitaire-ledger/internal/auth"
	"solitaire-ledger/internal/contract"
	"solitaire-ledger/internal/handler"
	"solitaire-ledger/internal/hub"
	"solitaire-ledger/internal/ledger"
	"solitaire-ledger/internal/middleware"
)

type Deps struct {
	Ledger      *ledger.Ledger
	Contract    contract.Solitaire
	Hub         *hub.Hub
	TokenConfig auth.TokenConfig
	Challenges  *auth.Challenges

	// Optional; created when nil.
	AuthLimiter   *middleware.RateLimiter
	InvokeLimiter *middleware.RateLimiter
}

// NewRouter wires the routes. The returned stop func ends the rate
// limiters' background cleanup.
func NewRouter(deps Deps) (*gin.Engine, func()) {
	if deps.Hub == nil {
		deps.Hub = hub.New()
		deps.Ledger.Subscribe(deps.Hub)
	}
	if deps.Challenges == nil {
		deps.Challenges = auth.NewChallenges(auth.DefaultChallengeTTL)
	}
	if deps.AuthLimiter == nil {
		deps.AuthLimiter = middleware.NewRateLimiter(10, time.Minute)
	}
	if deps.InvokeLimiter == nil {
		deps.InvokeLimiter = middleware.NewRateLimiter(120, time.Minute)
	}
	stop := func() {
		deps.AuthLimiter.Stop()
		deps.InvokeLimiter.Stop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	authHandler := &handler.AuthHandler{Challenges: deps.Challenges, TokenConfig: deps.TokenConfig}
	authGroup := r.Group("/v1/auth")
	authGroup.Use(middleware.RateLimitByIP(deps.AuthLimiter))
	authGroup.POST("/challenge", authHandler.Challenge)
	authGroup.POST("", authHandler.Auth)

	protected := r.Group("/v1")
	protected.Use(middleware.RequireAuth(deps.TokenConfig))

	gameHandler := &handler.GameHandler{Ledger: deps.Ledger, Contract: deps.Contract}
	games := protected.Group("/games")
	games.POST("", middleware.RateLimitByIdentity(deps.InvokeLimiter), gameHandler.Start)
	games.POST("/:id/moves", middleware.RateLimitByIdentity(deps.InvokeLimiter), gameHandler.RecordMove)
	games.POST("/:id/complete", middleware.RateLimitByIdentity(deps.InvokeLimiter), gameHandler.Complete)
	games.GET("/:id", gameHandler.Get)
	protected.GET("/stats", gameHandler.Stats)

	ledgerHandler := &handler.LedgerHandler{Ledger: deps.Ledger}
	protected.GET("/ledger", ledgerHandler.Info)
	protected.POST("/ledger/restore", ledgerHandler.Restore)

	wsHandler := &handler.WebSocketHandler{Hub: deps.Hub, TokenConfig: deps.TokenConfig}
	r.GET("/ws", wsHandler.Serve)

	return r, stop
}
