package results

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Get("/:raceID", func(c *fiber.Ctx) error {
		res, err := svc.ResultByRace(c.Context(), c.Params("raceID"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "no result for race")
		}
		return c.JSON(res)
	})
}
