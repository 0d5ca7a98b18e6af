// Package httpapi serves flows over HTTP with fiber.
package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/meikuraledutech/chatflow"
	"github.com/meikuraledutech/chatflow/apiexec"
	"github.com/meikuraledutech/chatflow/assistant"
	"github.com/meikuraledutech/chatflow/canvas"
	"github.com/meikuraledutech/chatflow/editor"
)

// Server exposes the flows of a Registry.
type Server struct {
	registry *editor.Registry
	chat     *assistant.Chat
	client   *http.Client
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// session groups the per-flow collaborators of one open editor.
type session struct {
	editor   *editor.Editor
	executor *apiexec.Executor
	canvas   *canvas.Canvas
}

// Option configures a Server.
type Option func(*Server)

// WithChat enables the /chat route.
func WithChat(c *assistant.Chat) Option {
	return func(s *Server) { s.chat = c }
}

// WithHTTPClient sets the client node API calls go through.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Server) {
		if c != nil {
			s.client = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a server over reg.
func New(reg *editor.Registry, opts ...Option) *Server {
	s := &Server{
		registry: reg,
		client:   http.DefaultClient,
		logger:   slog.Default(),
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// App builds the fiber application with every route mounted.
func (s *Server) App() *fiber.App {
	app := newApp()
	app.Use(recover.New())
	app.Use(requestLogger(s.logger))
	s.routes(app)
	return app
}

func newApp() *fiber.App {
	return fiber.New(fiber.Config{
		AppName:         "chatflow",
		StructValidator: newStructValidator(),
	})
}

// session returns the collaborators of flowID, rebuilding them when the
// registry has reopened the flow under a new editor.
func (s *Server) session(c fiber.Ctx, flowID string) (*session, error) {
	ed, err := s.registry.Get(c.Context(), flowID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ss, ok := s.sessions[flowID]; ok && ss.editor == ed {
		return ss, nil
	}
	logger := s.logger.With("flow", flowID)
	exec := apiexec.New(ed, apiexec.WithHTTPClient(s.client), apiexec.WithLogger(logger))
	ss := &session{
		editor:   ed,
		executor: exec,
		canvas:   canvas.New(ed, exec, logger),
	}
	s.sessions[flowID] = ss
	return ss, nil
}

func (s *Server) dropSession(flowID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, flowID)
}

// fail writes err as a JSON error body with a status derived from its kind.
func fail(c fiber.Ctx, err error) error {
	return c.Status(statusOf(err)).JSON(fiber.Map{"error": err.Error()})
}

func statusOf(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, chatflow.ErrFlowNotFound), errors.Is(err, chatflow.ErrNodeNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, chatflow.ErrFlowExists),
		errors.Is(err, chatflow.ErrDuplicateNode),
		errors.Is(err, chatflow.ErrDuplicateEdge),
		errors.Is(err, apiexec.ErrInFlight):
		return fiber.StatusConflict
	case errors.Is(err, chatflow.ErrInvalidNode),
		errors.Is(err, chatflow.ErrInvalidEdge),
		errors.Is(err, chatflow.ErrInvalidFlow),
		errors.Is(err, canvas.ErrUnknownEvent),
		errors.As(err, &verrs):
		return fiber.StatusBadRequest
	case errors.Is(err, assistant.ErrTooManyRounds):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// structValidator plugs go-playground/validator into fiber's binder.
type structValidator struct {
	validate *validator.Validate
}

func newStructValidator() *structValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &structValidator{validate: v}
}

func (v *structValidator) Validate(out any) error {
	t := reflect.TypeOf(out)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	return v.validate.Struct(out)
}

func requestLogger(logger *slog.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Debug("request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration", time.Since(start),
		)
		return err
	}
}
