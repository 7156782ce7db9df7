package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/guiyumin/socialdl/internal/core/cache"
	"github.com/guiyumin/socialdl/internal/core/downloader"
	"github.com/guiyumin/socialdl/internal/core/envelope"
	"github.com/guiyumin/socialdl/internal/core/platform"
	"github.com/guiyumin/socialdl/internal/core/stats"
	"github.com/guiyumin/socialdl/internal/core/version"
)

// downloadQuery is bound from the query string of every download route
type downloadQuery struct {
	URL     string `form:"url" binding:"required,url"`
	Quality string `form:"quality" binding:"omitempty,oneof=hd sd auto"`
}

func (s *Server) handleIndex(c *gin.Context) {
	platforms := gin.H{}
	for _, tag := range platform.Tags() {
		platforms[string(tag)] = "GET /api/" + string(tag) + "?url=<" + strings.ToUpper(string(tag)) + "_URL>&quality=<hd|sd|auto>"
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	} else if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	c.JSON(http.StatusOK, gin.H{
		"name":        "socialdl",
		"version":     version.Version,
		"description": "Resolve direct media links from TikTok, Instagram, Pinterest, Facebook, Likee, YouTube and Twitter/X posts",
		"endpoints": gin.H{
			"universal": "GET /api/download?url=<SOCIAL_MEDIA_URL>&quality=<hd|sd|auto>",
			"platforms": platforms,
		},
		"example": scheme + "://" + c.Request.Host + "/api/download?url=https://www.tiktok.com/@username/video/123456789",
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "OK",
		"message": "socialdl is running",
	})
}

func (s *Server) handleAPIHealth(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Code: 200,
		Data: gin.H{
			"status":  "ok",
			"version": version.Version,
		},
		Message: "everything is good",
	})
}

func (s *Server) handlePlatforms(c *gin.Context) {
	list := make([]gin.H, 0, len(platform.Tags()))
	for _, e := range s.svc.Registry().List() {
		tag := e.Name()
		list = append(list, gin.H{
			"id":       string(tag),
			"name":     tag.DisplayName(),
			"domains":  platform.Domains(tag),
			"endpoint": "/api/" + string(tag),
		})
	}
	c.JSON(http.StatusOK, Response{
		Code:    200,
		Data:    list,
		Message: "ok",
	})
}

func (s *Server) handleStats(c *gin.Context) {
	snap, err := s.stats.Snapshot(c.Request.Context())
	if err != nil {
		s.log.Error("failed to read stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{
			Code:    500,
			Data:    nil,
			Message: "failed to read stats",
		})
		return
	}
	c.JSON(http.StatusOK, Response{
		Code:    200,
		Data:    snap,
		Message: "ok",
	})
}

// handleDownload serves /api/download when tag is unknown, otherwise the
// platform-specific route
func (s *Server) handleDownload(tag platform.Tag) gin.HandlerFunc {
	routeName := "download"
	subject := "social media"
	if tag != platform.Unknown {
		routeName = string(tag)
		subject = tag.DisplayName()
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var q downloadQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			var resp envelope.DownloadResponse
			if strings.TrimSpace(c.Query("url")) == "" {
				resp = envelope.Failure(tag, envelope.InvalidURL,
					"URL parameter is required",
					"Please provide a valid "+subject+" URL")
			} else {
				resp = envelope.Failure(tag, envelope.InvalidURL,
					"Invalid request parameters", err.Error())
			}
			s.respond(c, resp, false)
			return
		}

		req, err := downloader.NewRequest(q.URL, q.Quality)
		if err != nil {
			s.respond(c, envelope.Failure(tag, envelope.InvalidURL, "Invalid request parameters", err.Error()), false)
			return
		}

		key := cache.Key(routeName, req.URL, string(req.Quality))
		if cached, err := s.cache.Get(ctx, key); err == nil {
			s.respond(c, *cached, true)
			return
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("cache get failed", zap.Error(err))
		}

		var resp envelope.DownloadResponse
		if tag == platform.Unknown {
			resp = s.svc.Download(ctx, req)
		} else {
			resp = s.svc.DownloadFor(ctx, tag, req)
		}

		if resp.Success {
			if err := s.cache.Set(ctx, key, &resp); err != nil {
				s.log.Warn("cache set failed", zap.Error(err))
			}
		} else if resp.Error.Code == envelope.ServerError {
			sentry.CaptureMessage(resp.Error.Details)
		}
		s.respond(c, resp, false)
	}
}

func (s *Server) respond(c *gin.Context, resp envelope.DownloadResponse, cached bool) {
	s.record(c, resp, cached)
	c.JSON(resp.StatusCode(), resp)
}

func (s *Server) record(c *gin.Context, resp envelope.DownloadResponse, cached bool) {
	ev := stats.Event{Platform: resp.Platform, Cached: cached}
	if resp.Error != nil {
		ev.ErrorCode = string(resp.Error.Code)
	}
	if err := s.stats.Record(c.Request.Context(), ev); err != nil {
		s.log.Warn("failed to record stats", zap.Error(err))
	}
}
