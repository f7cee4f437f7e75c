package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Dreta/Beacon/pkg/features"
	"github.com/Dreta/Beacon/pkg/pipeline"
)

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, features.ErrUnknownKind):
		code = fiber.StatusNotFound
	case errors.Is(err, features.ErrUnavailable):
		code = fiber.StatusConflict
	case errors.Is(err, pipeline.ErrCaptureUnavailable):
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// handleState returns the current perception state
func (s *Server) handleState(c *fiber.Ctx) error {
	return c.JSON(NewStateView(s.state.Snapshot(), s.runningCapture()))
}

// handleFeatures lists the catalog with enabled and availability flags
func (s *Server) handleFeatures(c *fiber.Ctx) error {
	return c.JSON(s.features.Status())
}

func (s *Server) handleEnable(c *fiber.Ctx) error {
	kind := features.Kind(c.Params("kind"))
	if err := s.features.Enable(kind); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"kind": kind, "enabled": true})
}

func (s *Server) handleDisable(c *fiber.Ctx) error {
	kind := features.Kind(c.Params("kind"))
	if err := s.features.Disable(kind); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"kind": kind, "enabled": false})
}

func (s *Server) handleToggle(c *fiber.Ctx) error {
	kind := features.Kind(c.Params("kind"))
	on, err := s.features.Toggle(kind)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"kind": kind, "enabled": on})
}

func (s *Server) handleCaptureStart(c *fiber.Ctx) error {
	if s.capture == nil {
		return pipeline.ErrCaptureUnavailable
	}
	if err := s.capture.StartCapture(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"running": true})
}

func (s *Server) handleCaptureStop(c *fiber.Ctx) error {
	if s.capture != nil {
		s.capture.StopCapture()
	}
	return c.JSON(fiber.Map{"running": false})
}
