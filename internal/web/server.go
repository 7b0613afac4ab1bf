// Package web serves a read-only JSON view over the note store so editors
// and dashboards can surface the team's recent activity.
package web

import (
	"github.com/gin-gonic/gin"

	"github.com/fac-31/Pro0929-CLI-Unites/internal/store"
)

// Server is the activity feed web server.
type Server struct {
	store  store.Store
	router *gin.Engine
}

// NewServer creates a server over an opened store handle.
func NewServer(st store.Store) *Server {
	router := gin.Default()

	s := &Server{
		store:  st,
		router: router,
	}

	api := router.Group("/api")
	{
		api.GET("/notes", s.handleListNotes)
		api.GET("/notes/:id", s.handleGetNote)
		api.GET("/search", s.handleSearch)
	}
	router.GET("/healthz", s.handleHealth)

	return s
}

// Run starts the web server.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}
