package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"stockforecast/models"
	"stockforecast/pipeline"
	"stockforecast/session"
)

const (
	sessionKey    = "session"
	lastOutputKey = "last_output"
	cookieMaxAge  = 7 * 24 * 3600
)

// SessionMiddleware attaches the visitor's session to the request, creating
// one and setting its cookie when needed.
func SessionMiddleware(mgr *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(session.CookieName)
		sess, created := mgr.GetOrCreate(id)
		if created {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(session.CookieName, sess.ID, cookieMaxAge, "/", "", false, true)
		}
		c.Set(sessionKey, sess)
		c.Next()
	}
}

// AttachSession attaches the session named by the request's cookie, if it is
// still live. It never creates one, so cookie-less API clients run without
// per-session state.
func AttachSession(mgr *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, err := c.Cookie(session.CookieName); err == nil {
			if sess, ok := mgr.Get(id); ok {
				c.Set(sessionKey, sess)
			}
		}
		c.Next()
	}
}

// sessionFrom returns the request's session, or nil outside the middleware.
func sessionFrom(c *gin.Context) *session.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*session.Session)
	return s
}

// configFromQuery reads ticker and years, falling back to the session's last
// configuration and then to the first ticker with a one-year horizon.
func configFromQuery(c *gin.Context, tickers []string) (models.Configuration, error) {
	cfg := models.Configuration{HorizonYears: models.MinHorizonYears}
	if len(tickers) > 0 {
		cfg.Ticker = tickers[0]
	}
	if s := sessionFrom(c); s != nil {
		if v, ok := s.Value(lastOutputKey); ok {
			cfg = v.(*pipeline.Output).Config
		}
	}

	if t := c.Query("ticker"); t != "" {
		cfg.Ticker = t
	}
	years := c.Query("years")
	if years == "" {
		years = c.Query("horizon_years")
	}
	if years != "" {
		n, err := strconv.Atoi(years)
		if err != nil {
			return cfg, invalidf("years must be an integer, got %q", years)
		}
		cfg.HorizonYears = n
	}
	return cfg.Normalized(), nil
}

// runCached runs the pipeline unless the session already holds the output
// for cfg. Outputs are idempotent per configuration.
func runCached(ctx context.Context, p *pipeline.Pipeline, sess *session.Session, cfg models.Configuration) (*pipeline.Output, error) {
	cfg = cfg.Normalized()
	if sess != nil {
		if v, ok := sess.Value(lastOutputKey); ok {
			if out := v.(*pipeline.Output); out.Config == cfg {
				return out, nil
			}
		}
	}
	out, err := p.Run(ctx, sess, cfg)
	if err != nil {
		return nil, err
	}
	if sess != nil {
		sess.Set(lastOutputKey, out)
	}
	return out, nil
}
