package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) listTools(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"tools": s.registry.Names(),
	})
}

func (s *Server) invokeTool(c echo.Context) error {
	name := c.Param("name")

	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "failed to read request body: " + err.Error(),
		})
	}

	result, err := s.registry.Dispatch(c.Request().Context(), name, json.RawMessage(payload))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) listProcesses(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"handles": s.manager.Processes(),
	})
}

func (s *Server) pollProcess(c echo.Context) error {
	snap, err := s.manager.Poll(c.Param("handle"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) collectProcess(c echo.Context) error {
	res, err := s.manager.Collect(c.Param("handle"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) killProcess(c echo.Context) error {
	if err := s.manager.Kill(c.Param("handle")); err != nil {
		return errorJSON(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
