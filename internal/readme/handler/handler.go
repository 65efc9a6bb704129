package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/readme-readyou/readme-readyou/internal/github"
	"github.com/readme-readyou/readme-readyou/internal/readme"
	"github.com/readme-readyou/readme-readyou/internal/readme/service"
	"github.com/readme-readyou/readme-readyou/pkg/logger"
	"github.com/readme-readyou/readme-readyou/pkg/middleware"
)

// Service is the README API the routes depend on.
type Service interface {
	GetOrCreate(ctx context.Context, identifier, mode string) (*service.Result, error)
	Exists(ctx context.Context, identifier, mode string) (*service.Existing, error)
	Save(ctx context.Context, identifier, mode, content string) (*readme.Record, error)
	SetDefault(ctx context.Context, identifier, mode string) error
	Profile(ctx context.Context, identifier string) (*github.User, []github.Repo, error)
}

// CardRenderer renders the embeddable SVG card for an identifier.
type CardRenderer interface {
	Render(ctx context.Context, identifier string) ([]byte, error)
}

func RegisterRoutes(r *gin.Engine, svc Service, cards CardRenderer, baseURL string) {
	api := r.Group("/api")

	api.GET("/readmes/:identifier/exists", func(c *gin.Context) {
		got, err := svc.Exists(c.Request.Context(), c.Param("identifier"), c.Query("mode"))
		if err != nil {
			if errors.Is(err, readme.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"exists": false, "error": "User not found"})
				return
			}
			writeError(c, err)
			return
		}
		if !got.Exists {
			c.JSON(http.StatusOK, gin.H{"exists": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"exists": true, "content": got.Content, "mode": got.Mode, "isDefault": got.IsDefault})
	})

	api.POST("/readmes/generate", func(c *gin.Context) {
		var req struct {
			Identifier string `json:"identifier"`
			Mode       string `json:"mode"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		res, err := svc.GetOrCreate(c.Request.Context(), req.Identifier, req.Mode)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	})

	api.POST("/readmes/save", func(c *gin.Context) {
		var req struct {
			Identifier string `json:"identifier"`
			Mode       string `json:"mode"`
			Content    string `json:"content"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rec, err := svc.Save(c.Request.Context(), req.Identifier, req.Mode, req.Content)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "identifier": rec.Identifier, "mode": rec.Mode, "updatedAt": rec.UpdatedAt})
	})

	api.POST("/readmes/set-default", func(c *gin.Context) {
		var req struct {
			Identifier string `json:"identifier"`
			Mode       string `json:"mode"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := svc.SetDefault(c.Request.Context(), req.Identifier, req.Mode); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	api.GET("/github/:identifier", func(c *gin.Context) {
		user, repos, err := svc.Profile(c.Request.Context(), c.Param("identifier"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user, "repos": repos})
	})

	embed := func(c *gin.Context) {
		id := strings.TrimSuffix(c.Param("identifier"), ".svg")
		svg, err := cards.Render(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, readme.ErrNotFound) || errors.Is(err, readme.ErrValidation) {
				c.String(http.StatusNotFound, "No README found for the user. Please generate a README first at %s", baseURL)
				return
			}
			logger.With("request_id", middleware.RequestIDFrom(c)).Errorf("render card for %q: %v", id, err)
			c.String(http.StatusInternalServerError, "Failed to generate SVG")
			return
		}
		c.Header("Cache-Control", "public, max-age=3600")
		c.Data(http.StatusOK, "image/svg+xml", svg)
	}
	r.GET("/embed/:identifier", embed)
	api.GET("/embed/:identifier", embed)
}

// writeError maps the error taxonomy onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	status, msg := http.StatusInternalServerError, "Internal server error"
	switch {
	case errors.Is(err, readme.ErrValidation):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, readme.ErrNotFound):
		status, msg = http.StatusNotFound, "User not found"
	case errors.Is(err, readme.ErrUpstream):
		msg = "Failed to fetch GitHub data"
	case errors.Is(err, readme.ErrGeneration):
		msg = "Failed to generate README"
	case errors.Is(err, readme.ErrStore):
		msg = "Failed to access README store"
	}
	if status >= http.StatusInternalServerError {
		logger.With("request_id", middleware.RequestIDFrom(c)).Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": msg})
}
