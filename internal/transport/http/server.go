// Package http provides the HTTP server implementation for the simulator.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/xiaot623/gogo/simulator/internal/config"
	"github.com/xiaot623/gogo/simulator/internal/service"
	v1 "github.com/xiaot623/gogo/simulator/internal/transport/http/v1"
	"github.com/xiaot623/gogo/simulator/internal/transport/ws"
)

// NewServer creates and configures the public HTTP server.
// This server handles the REST API and the live update websocket.
func NewServer(svc *service.Service, cfg *config.Config, live *ws.Server) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	var liveHandler echo.HandlerFunc
	if live != nil {
		liveHandler = live.HandleSimulation
	}

	// Register Routes
	v1.NewHandler(svc, cfg, liveHandler).RegisterRoutes(e)

	return e
}
