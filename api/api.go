package api

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursehub-api/services/storage"
	"github.com/sahilchouksey/coursehub-api/utils/apperr"
	"github.com/sahilchouksey/coursehub-api/utils/response"
)

// BodyLimit leaves room for multipart framing around the largest upload
const BodyLimit = storage.MaxUploadSize + 1<<20

type APIServer struct {
	app           *fiber.App
	listenAddress string
	logger        *slog.Logger
}

func NewAPIServer(listenAddress string, logger *slog.Logger) *APIServer {
	return &APIServer{
		app:           NewApp(),
		listenAddress: listenAddress,
		logger:        logger,
	}
}

// NewApp builds the fiber engine with the envelope error handler
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               "coursehub-api",
		BodyLimit:             BodyLimit,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          90 * time.Second,
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler,
	})
}

// ErrorHandler renders errors that escape handlers (unknown routes,
// oversized bodies, recovered panics) in the standard envelope
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		switch fe.Code {
		case fiber.StatusNotFound:
			return response.FromError(c, apperr.NotFound("Route not found"))
		case fiber.StatusMethodNotAllowed:
			return response.Error(c, fe.Code, "Method not allowed", "METHOD_NOT_ALLOWED")
		case fiber.StatusRequestEntityTooLarge:
			return response.Error(c, fe.Code, "Request body too large", "PAYLOAD_TOO_LARGE")
		}
		if fe.Code < fiber.StatusInternalServerError {
			return response.Error(c, fe.Code, fe.Message, "BAD_REQUEST")
		}
	}
	return response.FromError(c, err)
}

func (s *APIServer) GetEngine() *fiber.App {
	return s.app
}

func (s *APIServer) Run() error {
	s.logger.Info("starting API server", "address", s.listenAddress)
	return s.app.Listen(s.listenAddress)
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *APIServer) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
