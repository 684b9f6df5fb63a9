package api

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"mhdash/internal/cache"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
)

// NewServer builds the echo instance. responses may be nil to disable
// response caching.
func NewServer(h *Handler, responses cache.Provider, ttl time.Duration) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(RequestLogger())
	e.Use(middleware.CORS())

	var mw []echo.MiddlewareFunc
	if responses != nil {
		mw = append(mw, CacheResponses(responses, ttl, h.fingerprint))
	}
	h.RegisterRoutes(e, mw...)
	return e
}

// RequestLogger logs one zerolog line per request.
func RequestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

// CacheResponses serves repeated GETs from the cache. Keys combine the
// source fingerprint with the path and the sorted query.
func CacheResponses(p cache.Provider, ttl time.Duration, fingerprint func() string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodGet {
				return next(c)
			}
			fp := fingerprint()
			if fp == "" {
				return next(c)
			}
			sum := sha256.Sum256([]byte(fp + ":" + req.URL.Path + "?" + req.URL.Query().Encode()))
			key := hex.EncodeToString(sum[:])
			ctx := req.Context()

			body, ok, err := p.Get(ctx, key)
			if err != nil {
				log.Warn().Err(err).Msg("response cache get failed")
			} else if ok {
				c.Response().Header().Set("X-Cache", "HIT")
				return c.JSONBlob(http.StatusOK, body)
			}

			c.Response().Header().Set("X-Cache", "MISS")
			rec := &bodyRecorder{ResponseWriter: c.Response().Writer}
			c.Response().Writer = rec
			if err := next(c); err != nil {
				return err
			}
			if c.Response().Status == http.StatusOK {
				if err := p.Set(ctx, key, rec.body.Bytes(), ttl); err != nil {
					log.Warn().Err(err).Msg("response cache set failed")
				}
			}
			return nil
		}
	}
}

// bodyRecorder copies the response body while writing it through.
type bodyRecorder struct {
	http.ResponseWriter
	body bytes.Buffer
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// jsonSerializer swaps echo's encoding/json for goccy/go-json.
type jsonSerializer struct{}

func (jsonSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (jsonSerializer) Deserialize(c echo.Context, i interface{}) error {
	if err := json.NewDecoder(c.Request().Body).Decode(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	return nil
}
