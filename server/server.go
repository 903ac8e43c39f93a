package server

import (
	"bufio"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ardnew/rollout/bucket"
	"github.com/ardnew/rollout/config"
	"github.com/ardnew/rollout/log"
	"github.com/ardnew/rollout/rule"
	"github.com/ardnew/rollout/store"
	"github.com/ardnew/rollout/telemetry"
)

// Server is the HTTP surface over a rule store and, optionally, a
// loaded rule-set's default environment.
type Server struct {
	app     *fiber.App
	store   *store.Store
	rules   *config.RuleSet
	spans   telemetry.SpanManager
	metrics telemetry.MetricsRecorder
	logger  log.Logger

	streamInterval time.Duration
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithSpanManager overrides the default no-op [telemetry.SpanManager].
func WithSpanManager(m telemetry.SpanManager) Option {
	return func(s *Server) { s.spans = m }
}

// WithMetricsRecorder overrides the default no-op [telemetry.MetricsRecorder].
func WithMetricsRecorder(m telemetry.MetricsRecorder) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger overrides the server's logger.
func WithLogger(l log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithStreamInterval overrides how often GET /v1/stream re-evaluates
// stored rules. The default is five seconds.
func WithStreamInterval(d time.Duration) Option {
	return func(s *Server) { s.streamInterval = d }
}

// New creates a Server backed by st, optionally seeded with a loaded
// rule-set's default environment. rs may be nil.
func New(st *store.Store, rs *config.RuleSet, opts ...Option) *Server {
	srv := &Server{
		store:          st,
		rules:          rs,
		spans:          telemetry.NoopSpanManager{},
		metrics:        telemetry.NoopMetrics{},
		streamInterval: 5 * time.Second,
	}

	for _, opt := range opts {
		opt(srv)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	app.Use(srv.instrument)

	app.Post("/v1/evaluate", srv.handleEvaluate)
	app.Post("/v1/decide", srv.handleDecide)
	app.Get("/v1/rules", srv.handleListRules)
	app.Post("/v1/rules", srv.handlePutRule)
	app.Get("/v1/stream", srv.handleStream)

	srv.app = app

	return srv
}

// Listen starts the HTTP server on addr, blocking until it stops.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts the server down.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying Fiber app, useful for tests that want to
// call app.Test directly.
func (s *Server) App() *fiber.App {
	return s.app
}

// instrument assigns a request ID, times the request, and reports it
// through the server's SpanManager and MetricsRecorder.
func (s *Server) instrument(c *fiber.Ctx) error {
	reqID := uuid.NewString()
	c.Set("X-Request-Id", reqID)

	ctx, span := s.spans.StartHTTPSpan(c.UserContext(), c.Method(), c.Route().Path)
	c.SetUserContext(ctx)

	start := time.Now()

	err := c.Next()

	s.spans.EndSpanWithError(span, err)
	s.metrics.RecordHTTPRequest(ctx, c.Route().Path, c.Response().StatusCode(), time.Since(start))

	return err
}

func errorEnvelope(c *fiber.Ctx, status int, statusName, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    status,
			"message": message,
			"status":  statusName,
		},
	})
}

func isInvalidArgument(err error) bool {
	return errors.Is(err, rule.InvalidArgument)
}

type evaluateRequest struct {
	Formula string         `json:"formula"`
	Rule    string         `json:"rule"`
	Env     map[string]any `json:"env"`
}

// resolveFormula returns the formula text for a request that names
// either an ad hoc formula or a stored rule. When both are given, the
// ad hoc formula wins. A named rule is looked up in the store first,
// then in the loaded rule set.
func (s *Server) resolveFormula(req evaluateRequest) (string, error) {
	if req.Formula != "" {
		return req.Formula, nil
	}

	if req.Rule == "" {
		return "", fmt.Errorf("%w: request must set formula or rule", rule.InvalidArgument)
	}

	if s.store != nil {
		if f, err := s.store.Get(req.Rule); err == nil {
			return f, nil
		}
	}

	if s.rules != nil {
		if f, ok := s.rules.Formula(req.Rule); ok {
			return f, nil
		}
	}

	return "", fmt.Errorf("%w: unknown rule %q", rule.InvalidArgument, req.Rule)
}

func (s *Server) resolveEnv(overrides map[string]any) *rule.Env {
	if s.rules != nil {
		return s.rules.Env(overrides)
	}

	return rule.NewEnvFromMap(overrides)
}

func (s *Server) handleEvaluate(c *fiber.Ctx) error {
	var req evaluateRequest
	if err := c.BodyParser(&req); err != nil {
		return errorEnvelope(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "invalid request body: "+err.Error())
	}

	formula, err := s.resolveFormula(req)
	if err != nil {
		return errorEnvelope(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
	}

	env := s.resolveEnv(req.Env)

	ctx, span := s.spans.StartEvaluateSpan(c.UserContext(), req.Rule)

	start := time.Now()
	freq, err := rule.Evaluate(formula, env)

	s.metrics.RecordEvaluation(ctx, req.Rule, time.Since(start), err)
	s.spans.EndSpanWithError(span, err)

	if err != nil {
		if isInvalidArgument(err) {
			return errorEnvelope(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		}

		return errorEnvelope(c, fiber.StatusInternalServerError, "INTERNAL", err.Error())
	}

	return c.JSON(fiber.Map{"frequency": freq})
}

type decideRequest struct {
	evaluateRequest

	RolloutID string `json:"rolloutId"`
}

func (s *Server) handleDecide(c *fiber.Ctx) error {
	var req decideRequest
	if err := c.BodyParser(&req); err != nil {
		return errorEnvelope(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "invalid request body: "+err.Error())
	}

	if req.RolloutID == "" {
		return errorEnvelope(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "rolloutId is required")
	}

	formula, err := s.resolveFormula(req.evaluateRequest)
	if err != nil {
		return errorEnvelope(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
	}

	env := s.resolveEnv(req.Env)

	freq, err := rule.Evaluate(formula, env)
	if err != nil {
		if isInvalidArgument(err) {
			return errorEnvelope(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		}

		return errorEnvelope(c, fiber.StatusInternalServerError, "INTERNAL", err.Error())
	}

	decision := bucket.Decide(rule.CacheKey(formula), req.RolloutID, freq)

	s.metrics.RecordBucketDecision(c.UserContext(), req.Rule, decision)

	if s.store != nil {
		_ = s.store.RecordEvaluation(store.Evaluation{
			RuleName:    req.Rule,
			RolloutID:   req.RolloutID,
			Frequency:   freq,
			Decision:    decision,
			EvaluatedAt: time.Now(),
		})
	}

	return c.JSON(fiber.Map{"frequency": freq, "decision": decision})
}

func (s *Server) handleListRules(c *fiber.Ctx) error {
	if s.store == nil {
		return c.JSON(fiber.Map{"rules": []store.Named{}})
	}

	rules, err := s.store.List()
	if err != nil {
		return errorEnvelope(c, fiber.StatusInternalServerError, "INTERNAL", err.Error())
	}

	return c.JSON(fiber.Map{"rules": rules})
}

type putRuleRequest struct {
	Name    string `json:"name"`
	Formula string `json:"formula"`
}

func (s *Server) handlePutRule(c *fiber.Ctx) error {
	var req putRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return errorEnvelope(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "invalid request body: "+err.Error())
	}

	if req.Name == "" {
		return errorEnvelope(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "name is required")
	}

	if !rule.Validate(req.Formula) {
		return errorEnvelope(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "formula does not parse")
	}

	if s.store == nil {
		return errorEnvelope(c, fiber.StatusInternalServerError, "INTERNAL", "no store configured")
	}

	if err := s.store.Put(req.Name, req.Formula); err != nil {
		return errorEnvelope(c, fiber.StatusInternalServerError, "INTERNAL", err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"name": req.Name, "formula": req.Formula})
}

// handleStream re-evaluates every stored rule against a fixed rollout
// identifier on an interval, pushing an "event: decision" frame
// whenever a rule's decision flips.
func (s *Server) handleStream(c *fiber.Ctx) error {
	rolloutID := c.Query("rolloutId", "stream")

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	last := make(map[string]bool)

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(s.streamInterval)
		defer ticker.Stop()

		for range ticker.C {
			if s.store == nil {
				return
			}

			rules, err := s.store.List()
			if err != nil {
				return
			}

			for _, r := range rules {
				freq, err := rule.Evaluate(r.Formula, s.resolveEnv(nil))
				if err != nil {
					continue
				}

				decision := bucket.Decide(rule.CacheKey(r.Formula), rolloutID, freq)

				if prev, ok := last[r.Name]; ok && prev == decision {
					continue
				}

				last[r.Name] = decision

				fmt.Fprintf(w, "event: decision\ndata: {\"rule\":%q,\"decision\":%v}\n\n", r.Name, decision)

				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})

	return nil
}
