package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/zKi3v/ECOALERTA-FTD/internal/core/domain"
	"github.com/zKi3v/ECOALERTA-FTD/internal/core/usecases"
)

// reportID reads the :id path parameter.
func reportID(c *fiber.Ctx) (int, bool) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// CategoriesHandler lists report categories.
func CategoriesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cats, err := deps.Reports.Categories(c.UserContext())
		if err != nil {
			return fromError(c, err)
		}
		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(cats)
	}
}

// ListReportsHandler lists reports. Without a bearer token only anonymous
// reports are visible.
func ListReportsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		reports, err := deps.Reports.List(c.UserContext(), bearerToken(c))
		if err != nil {
			return fromError(c, err)
		}
		page, pg := paginate(c, reports, 50, 200)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// GetReportHandler returns one report.
func GetReportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := reportID(c)
		if !ok {
			return errBadRequest(c, "report id must be a positive integer")
		}
		r, err := deps.Reports.Get(c.UserContext(), id, bearerToken(c))
		if err != nil {
			return fromError(c, err)
		}
		return c.JSON(r)
	}
}

// SubmitReportHandler files a report, anonymously when no bearer token is
// sent.
func SubmitReportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in domain.NewReport
		if err := c.BodyParser(&in); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		client := usecases.Client{IP: c.IP(), UserAgent: c.Get(fiber.HeaderUserAgent)}
		res, err := deps.Reports.Submit(c.UserContext(), in, bearerToken(c), client)
		if err != nil {
			return fromError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// AnonymousQuotaHandler reports the anonymous quota left for an IP. It
// defaults to the caller's address.
func AnonymousQuotaHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := c.Query("ip", c.IP())
		q, err := deps.Reports.Quota(c.UserContext(), ip)
		if err != nil {
			return fromError(c, err)
		}
		c.Set("Cache-Control", "private, no-cache")
		return c.JSON(q)
	}
}

// UpdateReportStatusHandler moves a report through its workflow.
func UpdateReportStatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := reportID(c)
		if !ok {
			return errBadRequest(c, "report id must be a positive integer")
		}
		var in domain.StatusUpdate
		if err := c.BodyParser(&in); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if err := deps.Reports.UpdateStatus(c.UserContext(), bearerToken(c), id, in.Status); err != nil {
			return fromError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// DeleteReportHandler removes a report.
func DeleteReportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := reportID(c)
		if !ok {
			return errBadRequest(c, "report id must be a positive integer")
		}
		if err := deps.Reports.Delete(c.UserContext(), bearerToken(c), id); err != nil {
			return fromError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// LoginHandler exchanges credentials for a session.
func LoginHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in domain.Credentials
		if err := c.BodyParser(&in); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		s, err := deps.Auth.Login(c.UserContext(), in)
		if err != nil {
			return fromError(c, err)
		}
		c.Set("Cache-Control", "no-store")
		return c.JSON(s)
	}
}

// RegisterHandler creates a citizen account.
func RegisterHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in domain.Registration
		if err := c.BodyParser(&in); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if err := deps.Auth.Register(c.UserContext(), in); err != nil {
			return fromError(c, err)
		}
		return c.SendStatus(fiber.StatusCreated)
	}
}
