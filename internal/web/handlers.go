package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fac-31/Pro0929-CLI-Unites/internal/store"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
	maxQuerySize     = 10 << 10 // 10KB
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleListNotes(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if limit < 1 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	notes, err := s.store.ListNotes(c.Request.Context(), store.ListFilter{
		Limit: limit,
		Tag:   c.Query("tag"),
		Team:  c.Query("team"),
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrUnsupported) || errors.Is(err, store.ErrNotFound) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"notes":   notes,
		"count":   len(notes),
	})
}

func (s *Server) handleGetNote(c *gin.Context) {
	note, err := s.store.GetNote(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	if note == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "note not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"note":    note,
	})
}

func (s *Server) handleSearch(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "query parameter required",
		})
		return
	}
	if len(query) > maxQuerySize {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "query exceeds maximum size of 10KB",
		})
		return
	}

	notes, err := s.store.SearchNotes(c.Request.Context(), query, c.Query("team"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrUnsupported) || errors.Is(err, store.ErrNotFound) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"query":   query,
		"notes":   notes,
		"count":   len(notes),
	})
}
