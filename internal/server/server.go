// Package server serves calendar events from the local store over the same
// JSON protocol the loader speaks.
package server

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"multical/internal/db"
	"multical/internal/loader"
	"multical/internal/model"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// DefaultAddr is where the demo endpoint listens.
const DefaultAddr = ":5000"

type Server struct {
	db     *sql.DB
	token  string
	log    *slog.Logger
	engine *gin.Engine
}

type Option func(*Server)

// WithToken requires "Authorization: Bearer <token>" on data routes.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

func New(conn *sql.DB, opts ...Option) *Server {
	s := &Server{db: conn, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "X-Requested-With", "Content-Type", "Accept",
			"Authorization", "Cache-Control",
		},
		MaxAge: 12 * time.Hour,
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	data := r.Group("/")
	data.Use(s.auth())
	data.POST("/events", s.events)
	data.DELETE("/events/:id", s.deleteEvent)
	data.GET("/calendars", s.calendars)

	s.engine = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("events endpoint listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("events endpoint stopped")
	return nil
}

func (s *Server) auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.token == "" {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		token := ""
		if len(header) > 7 && strings.HasPrefix(header, "Bearer ") {
			token = header[7:]
		}
		if token != s.token {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) events(c *gin.Context) {
	var req loader.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(req.UIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "uid is required"})
		return
	}
	if req.End <= req.Start {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must be after start"})
		return
	}

	start := time.Unix(req.Start, 0).In(time.Local)
	end := time.Unix(req.End, 0).In(time.Local)
	payload, err := db.ListEvents(c.Request.Context(), s.db, req.UIDs, start, end)
	if err != nil {
		s.log.Error("list events failed", "uids", req.UIDs, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load events"})
		return
	}
	c.JSON(http.StatusOK, payload)
}

func (s *Server) deleteEvent(c *gin.Context) {
	id := model.EventID(c.Param("id"))
	if err := db.DeleteEvent(s.db, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		s.log.Error("delete event failed", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete event"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) calendars(c *gin.Context) {
	cals, err := db.ListCalendars(s.db)
	if err != nil {
		s.log.Error("list calendars failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load calendars"})
		return
	}
	if cals == nil {
		c.JSON(http.StatusOK, []struct{}{})
		return
	}
	c.JSON(http.StatusOK, cals)
}
