package server

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/invoicer/internal/i18n"
	obscontext "github.com/smallbiznis/invoicer/internal/observability/context"
	"github.com/smallbiznis/invoicer/internal/observability/logger"
	"github.com/smallbiznis/invoicer/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	contextLanguageKey = "lang"
	contextFlowKey     = "flow"
)

// Language negotiates the response language from ?lang= or
// Accept-Language, falling back to the profile default.
func (s *Server) Language() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.Query("lang"))
		if raw == "" {
			raw = c.GetHeader("Accept-Language")
		}
		lang := i18n.Match(raw, s.fallbackLang)

		c.Set(contextLanguageKey, lang)
		c.Header("Content-Language", string(lang))
		c.Request = c.Request.WithContext(obscontext.WithLanguage(c.Request.Context(), string(lang)))
		c.Next()
	}
}

func languageOf(c *gin.Context) i18n.Language {
	if v, ok := c.Get(contextLanguageKey); ok {
		if lang, ok := v.(i18n.Language); ok {
			return lang
		}
	}
	return i18n.Default
}

// FlowRateLimit throttles generation endpoints per client address.
func (s *Server) FlowRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.flowLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		endpoint := normalizeRateLimitEndpoint(c)
		result, err := s.flowLimiter.Allow(ctx, endpoint, c.ClientIP())
		if errors.Is(err, ratelimit.ErrRateLimited) {
			logger.FromContext(ctx).Warn("flow rate limit exceeded", zap.String("endpoint", endpoint))
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(result.RetryAfter.Seconds()))))
			c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			c.Header("X-RateLimit-Remaining", "0")
			AbortWithError(c, err)
			return
		}
		if err != nil {
			logger.FromContext(ctx).Warn("flow rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Next()
	}
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
