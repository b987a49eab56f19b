// file: internal/server/server.go
// version: 1.0.0
// guid: b2f7d0a9-4c58-4e13-8a6d-92e0c5f71b38

package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/matchwell/internal/cache"
	"github.com/jdfalk/matchwell/internal/config"
	"github.com/jdfalk/matchwell/internal/database"
	"github.com/jdfalk/matchwell/internal/metrics"
	"github.com/jdfalk/matchwell/internal/ratelimit"
	"github.com/jdfalk/matchwell/internal/search"
	"github.com/jdfalk/matchwell/internal/server/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Quotas for abuse-sensitive actions. Reporting triggers moderation work, so
// reported skips are throttled per account and per client IP while plain
// skips are not.
const (
	skipReportQuota     = "1 per minute"
	skipUUIDReportQuota = "1 per 5 minutes"
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *gin.Engine

	store      database.Store
	limiter    *ratelimit.Service
	dispatcher *search.Dispatcher
	exemptions *ratelimit.Exemptions
	ipLimiter  *ratelimit.IPRateLimiter

	statsCache *cache.Cache[gin.H]

	otpRule              ratelimit.Rule
	skipReportRule       ratelimit.Rule
	skipReportIPRule     ratelimit.Rule
	skipUUIDReportRule   ratelimit.Rule
	skipUUIDReportIPRule ratelimit.Rule
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// NewServer wires the route table: every endpoint's method, path, expected
// session status, validation, and rate-limit rules are declared here, and
// handlers only ever see requests that already passed all of it.
func NewServer(store database.Store) (*Server, error) {
	router := gin.Default()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestMetrics())
	router.Use(middleware.MaxRequestBodySize(config.AppConfig.MaxBodyBytes))

	metrics.Register()

	exemptions, err := ratelimit.LoadExemptions(config.AppConfig.TrustedIPsFile)
	if err != nil {
		return nil, fmt.Errorf("loading trusted IPs: %w", err)
	}
	trusted := ratelimit.TrustedContext(exemptions, config.AppConfig.DisableIPRateLimit)

	limiter := ratelimit.NewService(ratelimit.NewMemoryCounterStore())

	otpRule, err := ratelimit.NewRule("otp", config.AppConfig.OTPQuota, middleware.ByAccount())
	if err != nil {
		return nil, fmt.Errorf("otp quota: %w", err)
	}
	// Reports are throttled per account AND per client IP: the account rule
	// stops a single member spamming reports, the IP rule stops a farm of
	// accounts behind one address. Both must admit.
	skipReportRule, err := ratelimit.NewRule("skip-report", skipReportQuota, middleware.ByAccount())
	if err != nil {
		return nil, fmt.Errorf("skip report quota: %w", err)
	}
	skipReportIPRule, err := ratelimit.NewRule("skip-report-ip", skipReportQuota, ratelimit.ByClientIP())
	if err != nil {
		return nil, fmt.Errorf("skip report IP quota: %w", err)
	}
	skipUUIDReportRule, err := ratelimit.NewRule("skip-report-uuid", skipUUIDReportQuota, middleware.ByAccount())
	if err != nil {
		return nil, fmt.Errorf("skip report by-uuid quota: %w", err)
	}
	skipUUIDReportIPRule, err := ratelimit.NewRule("skip-report-uuid-ip", skipUUIDReportQuota, ratelimit.ByClientIP())
	if err != nil {
		return nil, fmt.Errorf("skip report by-uuid IP quota: %w", err)
	}
	uncachedRule, err := ratelimit.NewRule("search-uncached", config.AppConfig.UncachedSearchQuota, middleware.ByAccount())
	if err != nil {
		return nil, fmt.Errorf("uncached search quota: %w", err)
	}
	uncachedRule = uncachedRule.WithExemption(trusted)

	dispatcher := search.NewDispatcher(
		search.NewStoreBackend(store),
		limiter,
		uncachedRule,
		config.AppConfig.SearchWindowTTL,
	)

	server := &Server{
		router:               router,
		store:                store,
		limiter:              limiter,
		dispatcher:           dispatcher,
		exemptions:           exemptions,
		statsCache:           cache.New[gin.H](10 * time.Second),
		otpRule:              otpRule.WithExemption(trusted),
		skipReportRule:       skipReportRule,
		skipReportIPRule:     skipReportIPRule.WithExemption(trusted),
		skipUUIDReportRule:   skipUUIDReportRule,
		skipUUIDReportIPRule: skipUUIDReportIPRule.WithExemption(trusted),
	}

	server.ipLimiter = ratelimit.NewIPRateLimiter(
		config.AppConfig.IPRequestsPerMinute,
		config.AppConfig.IPBurst,
		exemptions,
		config.AppConfig.DisableIPRateLimit,
	)
	router.Use(server.ipLimiter.Middleware())

	server.setupRoutes()

	return server, nil
}

// Start starts the HTTP server and blocks until an interrupt signal arrives,
// then shuts down gracefully.
func (s *Server) Start(cfg ServerConfig) error {
	s.httpServer = &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:        s.router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	if err := s.exemptions.Watch(); err != nil {
		log.Printf("[WARN] trusted IP hot-reload unavailable: %v", err)
	}

	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Session gauge and expired-session purge while running
	ticker := time.NewTicker(time.Minute)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if purged, err := s.store.DeleteExpiredSessions(time.Now()); err != nil {
					log.Printf("[WARN] expired session purge failed: %v", err)
				} else if purged > 0 {
					log.Printf("[INFO] purged %d expired sessions", purged)
				}
				if count, err := s.store.CountSessions(); err == nil {
					metrics.SetActiveSessions(count)
				}
			case <-quit:
				return
			}
		}
	}()

	<-quit

	log.Println("Shutting down server...")

	s.exemptions.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server exited")
	return nil
}

// setupRoutes configures all the routes
func (s *Server) setupRoutes() {
	store := s.store

	// Operational endpoints; health and metrics bypass the IP limiter
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", middleware.MetricsAuth(), gin.WrapH(promhttp.Handler()))
	s.router.GET("/stats", s.getStats)

	requireOTP := ratelimit.Require(s.limiter, s.otpRule)

	// OTP sign-in flow; the three routes share one quota bucket
	s.router.POST("/request-otp", requireOTP, s.requestOTP)
	s.router.POST("/resend-otp",
		middleware.RequireSession(store, middleware.SignedIn(false)),
		requireOTP, s.resendOTP)
	s.router.POST("/check-otp",
		middleware.RequireSession(store, middleware.SignedIn(false)),
		requireOTP, s.checkOTP)
	s.router.POST("/sign-out",
		middleware.RequireSession(store, middleware.AnyStatus()), s.signOut)
	s.router.POST("/check-session-token",
		middleware.RequireSession(store, middleware.AnyStatus()), s.checkSessionToken)

	// Onboarding
	s.router.GET("/search-locations",
		middleware.RequireSession(store, middleware.AnyStatus()), s.searchLocations)
	s.router.PATCH("/onboardee-info",
		middleware.RequireSession(store, middleware.Onboarded(false)), s.patchOnboardeeInfo)
	s.router.DELETE("/onboardee-info",
		middleware.RequireSession(store, middleware.Onboarded(false)), s.deleteOnboardeeInfo)
	s.router.POST("/finish-onboarding",
		middleware.RequireSession(store, middleware.Onboarded(false)), s.finishOnboarding)

	signedIn := func() gin.HandlerFunc {
		return middleware.RequireSession(store, middleware.OnboardedAndSignedIn())
	}

	// Questions and answers
	s.router.GET("/next-questions", signedIn(), s.nextQuestions)
	s.router.POST("/answer", signedIn(), s.postAnswer)
	s.router.DELETE("/answer", signedIn(), s.deleteAnswer)
	s.router.GET("/compare-personalities/:prospect_person_id/:topic",
		signedIn(), middleware.IntParam("prospect_person_id"),
		middleware.TopicParam("topic"), s.comparePersonalities)
	s.router.GET("/compare-answers/:prospect_person_id",
		signedIn(), middleware.IntParam("prospect_person_id"), s.compareAnswers)

	// Search
	s.router.GET("/search", signedIn(), s.getSearch)
	s.router.GET("/search-filters", signedIn(), s.getSearchFilters)
	s.router.POST("/search-filter", signedIn(), s.postSearchFilter)
	s.router.GET("/search-filter-questions", signedIn(), s.getFilterQuestions)
	s.router.POST("/search-filter-answer", signedIn(), s.postFilterAnswer)
	s.router.GET("/search-clubs", signedIn(), s.searchClubs)
	s.router.POST("/join-club", signedIn(), s.joinClub)
	s.router.POST("/leave-club", signedIn(), s.leaveClub)

	// Profiles
	s.router.GET("/me", signedIn(), s.getMe)
	s.router.GET("/me/:person_id", signedIn(), middleware.IntParam("person_id"), s.getPersonByID)
	s.router.GET("/prospect-profile/:prospect_uuid", signedIn(), s.getProspectProfile)
	s.router.GET("/profile-info", signedIn(), s.getProfileInfo)
	s.router.PATCH("/profile-info", signedIn(), s.patchProfileInfo)
	s.router.DELETE("/profile-info", signedIn(), s.deleteProfileInfo)
	s.router.POST("/inbox-info", signedIn(), s.postInboxInfo)

	// Skips; a reported skip is throttled, a plain skip is not
	s.router.POST("/skip/:prospect_person_id",
		signedIn(), middleware.IntParam("prospect_person_id"), s.skipByID)
	s.router.POST("/skip/by-uuid/:prospect_uuid", signedIn(), s.skipByUUID)
	s.router.POST("/unskip/:prospect_person_id",
		signedIn(), middleware.IntParam("prospect_person_id"), s.unskip)

	// Account lifecycle
	s.router.DELETE("/account", signedIn(), s.deleteAccount)
	s.router.POST("/deactivate", signedIn(), s.deactivate)
	s.router.GET("/update-notifications", s.updateNotifications)

	// Moderation, reachable through emailed single-use tokens
	s.router.GET("/admin/ban-link/:token", s.adminBanLink)
	s.router.GET("/admin/ban/:token", s.adminBan)
	s.router.GET("/admin/delete-photo-link/:token", s.adminDeletePhotoLink)
	s.router.GET("/admin/delete-photo/:token", s.adminDeletePhoto)
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// requestMetrics counts completed requests by route template and status.
func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.IncRequest(route, strconv.Itoa(c.Writer.Status()))
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	resp := gin.H{
		"status":        "ok",
		"timestamp":     time.Now().Unix(),
		"database_type": config.AppConfig.DatabaseType,
	}
	if _, err := s.store.CountPersons(); err != nil {
		resp["status"] = "degraded"
		resp["database_error"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// getStats serves aggregate numbers behind a short TTL cache so frequent
// polling never turns into repeated store scans.
func (s *Server) getStats(c *gin.Context) {
	if stats, ok := s.statsCache.Get("stats"); ok {
		c.JSON(http.StatusOK, stats)
		return
	}

	persons, err := s.store.CountPersons()
	if err != nil {
		metrics.IncStoreError("CountPersons")
		RespondWithStoreUnavailable(c)
		return
	}
	sessions, err := s.store.CountSessions()
	if err != nil {
		metrics.IncStoreError("CountSessions")
		RespondWithStoreUnavailable(c)
		return
	}

	stats := gin.H{
		"person_count":  persons,
		"session_count": sessions,
	}
	s.statsCache.Set("stats", stats)
	c.JSON(http.StatusOK, stats)
}
