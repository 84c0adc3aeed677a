package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/zaltra000/mihrab-sala/internal/geo"
	"github.com/zaltra000/mihrab-sala/internal/model"
	"github.com/zaltra000/mihrab-sala/internal/prayertime"
	"github.com/zaltra000/mihrab-sala/internal/recommend"
	"github.com/zaltra000/mihrab-sala/internal/storage"
)

const (
	sessionCookie = "session_token"
	sessionTTL    = 24 * time.Hour
)

// NotificationScheduler is the part of the scheduler the API drives.
type NotificationScheduler interface {
	Trigger()
	Test(ctx context.Context) (model.Notification, error)
}

type Locator interface {
	Resolve(ctx context.Context, coords *model.Coordinates) geo.Place
}

type Deps struct {
	Store       *storage.Store
	Scheduler   NotificationScheduler
	Calculator  prayertime.Calculator
	Locator     Locator
	Engine      *recommend.Engine
	Location    *time.Location
	CORSOrigins []string
}

type Server struct {
	store      *storage.Store
	scheduler  NotificationScheduler
	calc       prayertime.Calculator
	locator    Locator
	engine     *recommend.Engine
	loc        *time.Location
	now        func() time.Time
	tick       time.Duration
	router     *gin.Engine
	sessionsMu sync.Mutex
	sessions   map[string]time.Time
}

func NewServer(deps Deps) *Server {
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}
	engine := deps.Engine
	if engine == nil {
		engine = recommend.NewEngine(nil)
	}
	calc := deps.Calculator
	if calc == nil {
		calc = prayertime.Astronomical{}
	}

	s := &Server{
		store:     deps.Store,
		scheduler: deps.Scheduler,
		calc:      calc,
		locator:   deps.Locator,
		engine:    engine,
		loc:       loc,
		now:       time.Now,
		tick:      time.Second,
		router:    gin.New(),
		sessions:  make(map[string]time.Time),
	}
	s.routes(deps.CORSOrigins)
	return s
}

func (s *Server) routes(origins []string) {
	s.router.Use(gin.Recovery(), requestLogger())
	s.router.Use(cors.New(corsConfig(origins)))

	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Public routes
	public := s.router.Group("/api")
	public.POST("/setup", s.handleSetup)
	public.POST("/login", s.handleLogin)
	public.POST("/logout", s.handleLogout)

	// Protected routes
	api := s.router.Group("/api")
	api.Use(s.authMiddleware())
	{
		api.GET("/today", s.handleToday)
		api.GET("/logs/:date", s.handleGetLog)
		api.POST("/logs/:date/:prayer/toggle", s.handleToggle)

		api.GET("/stats", s.handleStats)
		api.GET("/insight", s.handleInsight)

		api.GET("/tasbih", s.handleGetTasbih)
		api.POST("/tasbih", s.handleAddTasbih)

		api.GET("/settings", s.handleGetSettings)
		api.PUT("/settings", s.handleUpdateSettings)
		api.POST("/location", s.handleLocation)

		api.GET("/prayer-times", s.handlePrayerTimes)
		api.GET("/next-prayer", s.handleNextPrayer)
		api.GET("/next-prayer/stream", s.handleNextPrayerStream)

		api.GET("/notifications", s.handleNotifications)
		api.POST("/notifications/test", s.handleTestNotification)
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Middleware
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.store.GetSettings().PasswordHash == "" {
			respondError(c, http.StatusForbidden, "setup required")
			c.Abort()
			return
		}

		token, err := c.Cookie(sessionCookie)
		if err != nil || token == "" || !s.validSession(token) {
			respondError(c, http.StatusUnauthorized, "login required")
			c.Abort()
			return
		}

		c.Next()
	}
}

func (s *Server) validSession(token string) bool {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()

	expiry, ok := s.sessions[token]
	if !ok {
		return false
	}
	if s.now().After(expiry) {
		delete(s.sessions, token)
		return false
	}
	return true
}

// Handlers

type passwordRequest struct {
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleSetup(c *gin.Context) {
	if s.store.GetSettings().PasswordHash != "" {
		respondError(c, http.StatusConflict, "already set up")
		return
	}

	var req passwordRequest
	if !bindJSON(c, &req, "password is required") {
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to hash password")
		return
	}
	if _, err := s.store.UpdateSettings(c.Request.Context(), func(st *model.Settings) {
		st.PasswordHash = hash
	}); err != nil {
		slog.Error("Failed to save settings", "error", err)
		respondError(c, http.StatusInternalServerError, "failed to save settings")
		return
	}

	s.scheduler.Trigger()
	c.JSON(http.StatusCreated, gin.H{"message": "setup complete"})
}

func (s *Server) handleLogin(c *gin.Context) {
	settings := s.store.GetSettings()
	if settings.PasswordHash == "" {
		respondError(c, http.StatusForbidden, "setup required")
		return
	}

	var req passwordRequest
	if !bindJSON(c, &req, "password is required") {
		return
	}
	if err := checkPassword(settings.PasswordHash, req.Password); err != nil {
		respondError(c, http.StatusUnauthorized, "invalid password")
		return
	}

	sessionToken := uuid.New().String()
	s.sessionsMu.Lock()
	s.sessions[sessionToken] = s.now().Add(sessionTTL)
	s.sessionsMu.Unlock()

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, sessionToken, int(sessionTTL/time.Second), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged in"})
}

func (s *Server) handleLogout(c *gin.Context) {
	if token, err := c.Cookie(sessionCookie); err == nil {
		s.sessionsMu.Lock()
		delete(s.sessions, token)
		s.sessionsMu.Unlock()
	}
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func hashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func checkPassword(hash, plain string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)); err != nil {
		return errors.New("password mismatch")
	}
	return nil
}
