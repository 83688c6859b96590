package race

import (
	"errors"

	"backend-routerace/internal/shared/geo"
	"backend-routerace/internal/track"

	"github.com/gofiber/fiber/v2"
)

type createRaceRequest struct {
	Participants []ParticipantSpec `json:"participants"`
}

type assignRouteRequest struct {
	ParticipantID string       `json:"participantId"`
	Polyline      [][2]float64 `json:"polyline"`
	Destination   [2]float64   `json:"destination"`
}

type setDriverRequest struct {
	ParticipantID string     `json:"participantId"`
	Kind          DriverKind `json:"kind"`
	Speed         float64    `json:"speed"`
}

type endRaceRequest struct {
	Reason EndReason `json:"reason"`
}

func RegisterRoutes(r fiber.Router, mgr *Manager) {
	r.Post("/", func(c *fiber.Ctx) error {
		var req createRaceRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		session, err := mgr.Create(req.Participants)
		if err != nil {
			return httpError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":    session.ID,
			"phase": session.Phase().String(),
		})
	})

	r.Post("/:id/routes", func(c *fiber.Ctx) error {
		session, err := mgr.Get(c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		var req assignRouteRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		line := make([]geo.Point, len(req.Polyline))
		for i, p := range req.Polyline {
			line[i] = geo.Point{Lon: p[0], Lat: p[1]}
		}
		dest := geo.Point{Lon: req.Destination[0], Lat: req.Destination[1]}
		if err := session.AssignRoute(ParticipantID(req.ParticipantID), line, dest); err != nil {
			return httpError(err)
		}
		return c.JSON(fiber.Map{"status": "assigned"})
	})

	r.Post("/:id/start", func(c *fiber.Ctx) error {
		session, err := mgr.Get(c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		if err := session.Start(); err != nil {
			return httpError(err)
		}
		return c.JSON(fiber.Map{"phase": session.Phase().String()})
	})

	r.Post("/:id/fixes", func(c *fiber.Ctx) error {
		session, err := mgr.Get(c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		var fix Fix
		if err := c.BodyParser(&fix); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if fix.Participant == "" {
			return fiber.NewError(fiber.StatusBadRequest, "participantId required")
		}
		session.Submit(fix)
		return c.SendStatus(fiber.StatusAccepted)
	})

	r.Post("/:id/drivers", func(c *fiber.Ctx) error {
		session, err := mgr.Get(c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		var req setDriverRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := session.SetDriver(ParticipantID(req.ParticipantID), req.Kind, req.Speed); err != nil {
			return httpError(err)
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	r.Delete("/:id/drivers/:participantID", func(c *fiber.Ctx) error {
		session, err := mgr.Get(c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		if err := session.StopDriver(ParticipantID(c.Params("participantID"))); err != nil {
			return httpError(err)
		}
		return c.JSON(fiber.Map{"status": "stopped"})
	})

	r.Post("/:id/reset", func(c *fiber.Ctx) error {
		session, err := mgr.Get(c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		session.Reset()
		return c.JSON(fiber.Map{"phase": session.Phase().String()})
	})

	r.Post("/:id/end", func(c *fiber.Ctx) error {
		session, err := mgr.Get(c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		var req endRaceRequest
		_ = c.BodyParser(&req)
		if req.Reason == "" {
			req.Reason = ReasonUserCancelled
		}
		if err := session.End(req.Reason); err != nil {
			return httpError(err)
		}
		return c.JSON(fiber.Map{"phase": session.Phase().String()})
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		session, err := mgr.Get(c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(fiber.Map{
			"id":           session.ID,
			"phase":        session.Phase().String(),
			"participants": session.Snapshot(),
		})
	})

	r.Get("/:id/ranking", func(c *fiber.Ctx) error {
		session, err := mgr.Get(c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(fiber.Map{"order": session.RankingNow()})
	})
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrRaceNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrDriverConflict),
		errors.Is(err, ErrIncompleteAssignment),
		errors.Is(err, ErrAlreadyStarted),
		errors.Is(err, ErrSessionEnded):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, track.ErrInvalidPolyline),
		errors.Is(err, ErrUnknownParticipant),
		errors.Is(err, ErrNoParticipants),
		errors.Is(err, ErrDuplicateParticipant):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
