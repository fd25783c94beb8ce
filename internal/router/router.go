package router

import (
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	"classifieds/internal/config"
	"classifieds/internal/errors"
	"classifieds/internal/handler"
	"classifieds/internal/metrics"
	appmw "classifieds/internal/middleware"
	"classifieds/internal/service"
)

// Register wires routes and middleware. collector and gatherer may be nil,
// in which case no metrics are recorded or exposed.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	logger *slog.Logger,
	collector *metrics.Collector,
	gatherer prometheus.Gatherer,
	authService service.AuthService,
	authHandler *handler.AuthHandler,
	adHandler *handler.AdHandler,
	paymentHandler *handler.PaymentHandler,
) {
	e.HTTPErrorHandler = ErrorHandler(logger)
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(middleware.Recover())
	e.Use(requestLogger(logger))
	if collector != nil {
		e.Use(collector.Middleware())
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler(gatherer)))
	}
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")
	requireSession := appmw.RequireSession(authService)

	authGroup := api.Group("/auth")
	if cfg.AuthRateLimit > 0 {
		authGroup.Use(rateLimiter(cfg.AuthRateLimit))
	}
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/google/session", authHandler.SSOSession)
	authGroup.GET("/me", authHandler.Me, requireSession)
	authGroup.POST("/logout", authHandler.Logout)

	api.GET("/ads", adHandler.ListAds)
	api.GET("/ads/:id", adHandler.GetAd)
	api.POST("/ads", adHandler.CreateAd, requireSession)
	api.PUT("/ads/:id", adHandler.UpdateAd, requireSession)
	api.DELETE("/ads/:id", adHandler.DeleteAd, requireSession)
	api.GET("/my-ads", adHandler.MyAds, requireSession)

	api.POST("/payment/create-session", paymentHandler.CreateSession, requireSession)
	api.GET("/payment/status/:session_id", paymentHandler.Status, requireSession)
	api.POST("/webhook/stripe", paymentHandler.StripeWebhook)

	api.GET("/categories", handler.ListCategories)
}

// ErrorHandler renders every error as {"detail": ..., "code": ...}.
// Unexpected failures are logged with their cause.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if !stderrors.As(err, &he) {
			httpErr := errors.MapErrorToHTTP(err)
			he = echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse()).SetInternal(err)
		}

		var body errors.ErrorResponse
		switch m := he.Message.(type) {
		case errors.ErrorResponse:
			body = m
		case string:
			body = errors.ErrorResponse{Detail: m}
		default:
			body = errors.ErrorResponse{Detail: http.StatusText(he.Code)}
		}

		if he.Code >= http.StatusInternalServerError {
			cause := err
			if he.Internal != nil {
				cause = he.Internal
			}
			logger.ErrorContext(c.Request().Context(), "request failed",
				slog.String("method", c.Request().Method),
				slog.String("path", c.Path()),
				slog.String("error", cause.Error()),
			)
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(he.Code)
			return
		}
		_ = c.JSON(he.Code, body)
	}
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
			)
			return nil
		},
	})
}

func rateLimiter(perSecond float64) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStore(rate.Limit(perSecond)),
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, errors.ErrorResponse{
				Detail: "Too many requests",
				Code:   "RATE_LIMITED",
			})
		},
	})
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
