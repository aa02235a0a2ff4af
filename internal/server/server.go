package server

import (
	"errors"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"procure/internal/config"
	"procure/internal/fxrate"
	"procure/internal/logging"
	"procure/internal/pipeline"
	"procure/internal/query"
	"procure/internal/storage"
	"procure/internal/tracker"
)

type Server struct {
	app      *fiber.App
	db       *storage.DB
	cfg      config.Config
	log      *logging.Logger
	importer *pipeline.ImportService
	dispatch query.Dispatcher
}

func New(db *storage.DB, cfg config.Config, log *logging.Logger) *Server {
	s := &Server{
		db:       db,
		cfg:      cfg,
		log:      log,
		importer: pipeline.NewImportService(db, cfg, log),
		dispatch: query.NewFromConfig(cfg),
	}

	bodyLimit := cfg.UploadMaxBytes
	if bodyLimit <= 0 {
		bodyLimit = 32 << 20
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "procure",
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path} ${error}\n",
		Output: os.Stderr,
	}))

	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := s.app.Group("/api")
	api.Post("/imports", s.createImport)
	api.Get("/imports", s.listImports)
	api.Get("/summary", s.summary)
	api.Post("/query", s.ask)

	reports := api.Group("/reports")
	for _, format := range []string{formatXLSX, formatPDF} {
		reports.Get("/monthly."+format, s.monthlyReport(format))
		reports.Get("/activity."+format, s.activityReport(format))
	}
}

func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error {
	s.log.Info("http listening on %s", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// rate is the stored synced rate when there is one, else the configured rate.
func (s *Server) rate() float64 {
	return fxrate.DefaultRate(s.db, s.cfg)
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, pipeline.ErrNoSnapshot), errors.Is(err, tracker.ErrNoMonthData):
		code = fiber.StatusNotFound
	case errors.Is(err, pipeline.ErrMissingColumn),
		errors.Is(err, pipeline.ErrNoTrackerTable),
		errors.Is(err, pipeline.ErrUnsupportedInput),
		errors.Is(err, pipeline.ErrNoAttachment):
		code = fiber.StatusUnprocessableEntity
	case errors.Is(err, tracker.ErrRateOutOfRange):
		code = fiber.StatusBadRequest
	}
	if code >= fiber.StatusInternalServerError {
		s.log.Error("%s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
