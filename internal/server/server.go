package server

import (
	"time"

	"backend-routerace/internal/config"
	"backend-routerace/internal/race"
	"backend-routerace/internal/results"
	"backend-routerace/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Stream *stream.Hub
	Races  *race.Manager
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	hub := stream.NewHub(redisClient)

	// a nil *pgxpool.Pool wrapped into the Querier interface is non-nil, so
	// the service's own nil guard would never fire
	var recorder race.Recorder
	var resultSvc *results.Service
	if db != nil {
		resultSvc = results.NewService(db)
		recorder = resultSvc
	} else {
		resultSvc = results.NewService(nil)
	}

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Stream: hub,
		Races:  race.NewManager(raceSettings(cfg), hub, recorder),
	}

	registerRoutes(s, resultSvc)
	return s
}

func raceSettings(cfg config.Config) race.Settings {
	return race.Settings{
		ArrivalThresholdM:  cfg.ArrivalThresholdM,
		OffRouteThresholdM: cfg.OffRouteThresholdM,
		BotTick:            time.Duration(cfg.BotTickMs) * time.Millisecond,
		BotMinSpeed:        cfg.BotMinSpeed,
		BotMaxSpeed:        cfg.BotMaxSpeed,
	}
}

func registerRoutes(s *Server, resultSvc *results.Service) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	race.RegisterRoutes(s.App.Group("/races"), s.Races)
	results.RegisterRoutes(s.App.Group("/results"), resultSvc)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
