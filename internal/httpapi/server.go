// Package httpapi exposes the persisted batch results over a small
// read-mostly JSON API.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"horse.fit/newsroom/internal/globaltime"
	"horse.fit/newsroom/internal/store"
	"horse.fit/newsroom/internal/verify"
	payloadschema "horse.fit/newsroom/schema"
)

const (
	defaultBatchLimit = 25
	maxBatchLimit     = 200

	// Raw connector payloads are small; reject anything that is not.
	maxValidateBody = 1 << 20
)

// TopicReader is the read surface the server needs from the store.
type TopicReader interface {
	ListBatches(ctx context.Context, limit int) ([]store.BatchSummary, error)
	GetBatch(ctx context.Context, batchID string) (*store.BatchSummary, error)
	ListTopics(ctx context.Context, batchID string) ([]verify.VerifiedTopic, error)
}

// Pinger reports storage liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	topics TopicReader
	pinger Pinger
	logger zerolog.Logger
	opts   Options
}

func NewServer(topics TopicReader, pinger Pinger, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8090
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &Server{
		topics: topics,
		pinger: pinger,
		logger: logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.topics == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.buildEcho()

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("newsroom api server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("newsroom api server stopped")
	return nil
}

func (s *Server) buildEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/batches", s.handleBatches)
	api.GET("/batches/:batch_id", s.handleBatchDetail)
	api.GET("/batches/:batch_id/topics", s.handleBatchTopics)
	api.POST("/payloads/validate", s.handleValidatePayload)

	return e
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	storage := "ok"
	if s.pinger != nil {
		if err := s.pinger.Ping(c.Request().Context()); err != nil {
			storage = "unreachable"
		}
	} else {
		storage = "disabled"
	}
	return success(c, map[string]any{
		"service": "newsroom",
		"storage": storage,
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleBatches(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultBatchLimit, 1, maxBatchLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	batches, err := s.topics.ListBatches(c.Request().Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("query batches failed")
		return internalError(c, "Failed to load batches")
	}
	return success(c, map[string]any{
		"items": batches,
		"limit": limit,
	})
}

func (s *Server) handleBatchDetail(c echo.Context) error {
	batchID := strings.TrimSpace(c.Param("batch_id"))
	if batchID == "" {
		return failValidation(c, map[string]string{"batch_id": "is required"})
	}

	batch, err := s.topics.GetBatch(c.Request().Context(), batchID)
	if err != nil {
		if store.IsNoRows(err) {
			return failNotFound(c, "Batch not found")
		}
		s.logger.Error().Err(err).Str("batch_id", batchID).Msg("query batch failed")
		return internalError(c, "Failed to load batch")
	}
	return success(c, batch)
}

func (s *Server) handleBatchTopics(c echo.Context) error {
	batchID := strings.TrimSpace(c.Param("batch_id"))
	if batchID == "" {
		return failValidation(c, map[string]string{"batch_id": "is required"})
	}

	if _, err := s.topics.GetBatch(c.Request().Context(), batchID); err != nil {
		if store.IsNoRows(err) {
			return failNotFound(c, "Batch not found")
		}
		s.logger.Error().Err(err).Str("batch_id", batchID).Msg("query batch failed")
		return internalError(c, "Failed to load batch")
	}

	topics, err := s.topics.ListTopics(c.Request().Context(), batchID)
	if err != nil {
		s.logger.Error().Err(err).Str("batch_id", batchID).Msg("query topics failed")
		return internalError(c, "Failed to load topics")
	}
	return success(c, map[string]any{
		"batch_id": batchID,
		"items":    topics,
	})
}

// handleValidatePayload runs a raw connector payload through the same
// schema gate the pipeline applies before normalization.
func (s *Server) handleValidatePayload(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxValidateBody+1))
	if err != nil {
		return failValidation(c, map[string]string{"body": "could not be read"})
	}
	if len(body) > maxValidateBody {
		return fail(c, http.StatusRequestEntityTooLarge, "Payload too large", nil)
	}

	payload, err := payloadschema.ValidateRawItem(body)
	if err != nil {
		return failValidation(c, map[string]string{"payload": err.Error()})
	}
	return success(c, map[string]any{
		"valid":       true,
		"source_type": payload.SourceType,
		"title":       payload.Title,
	})
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}
