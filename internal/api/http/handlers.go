package http

import (
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/mbocharov/shortlink/internal/models"
	"github.com/mbocharov/shortlink/internal/service"
	"github.com/mbocharov/shortlink/pkg/response"
)

// shortenRequest represents the request payload for creating a shortened URL.
// Semantic validation (URL shape, validity range, short code rules) happens
// in the service; only structural checks run here.
type shortenRequest struct {
	URL       string `json:"url" validate:"required"`
	Validity  *int   `json:"validity,omitempty"`
	ShortCode string `json:"shortcode,omitempty"`
}

// shortURLResponse represents the response payload for a successful shorten.
type shortURLResponse struct {
	ShortLink   string    `json:"shortLink"`
	Expiry      time.Time `json:"expiry"`
	ShortCode   string    `json:"shortcode"`
	OriginalURL string    `json:"originalUrl"`
}

// renderServiceError maps a service error kind onto a transport status and
// the shared envelope. Unknown errors were already logged by the service.
func renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ServerErrorResponse)
		return
	}

	var status int
	switch svcErr.Kind {
	case service.KindInvalidInput:
		status = http.StatusBadRequest
	case service.KindConflict:
		status = http.StatusConflict
	case service.KindNotFound:
		status = http.StatusNotFound
	case service.KindExpired:
		status = http.StatusGone
	default:
		status = http.StatusInternalServerError
	}

	msg := svcErr.Message
	if len(svcErr.Details) > 0 {
		msg = svcErr.Details[0]
	}

	render.Status(r, status)
	render.JSON(w, r, response.ErrorResponse(svcErr.Message, msg, svcErr.Details...))
}

// handleHealth reports service health together with aggregate store counts.
func handleHealth(svc URLService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse("URL shortener is healthy.", map[string]any{
			"timestamp": time.Now().UTC(),
			"store":     svc.Summary(r.Context()),
		}))
	}
}

// handleCreateShortURL handles POST requests to shorten a URL.
//
// The request must contain a URL and may carry a validity window in minutes
// and a custom short code. On success the generated short link and its
// expiry are returned.
func handleCreateShortURL(svc URLService, validate *validator.Validate) http.HandlerFunc {
	const successMsg = "The URL has been shortened successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		var req shortenRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		res, err := svc.CreateShortURL(r.Context(), req.URL, req.Validity, req.ShortCode)
		if err != nil {
			renderServiceError(w, r, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.SuccessResponse(successMsg, shortURLResponse{
			ShortLink:   res.ShortLink,
			Expiry:      res.Expiry,
			ShortCode:   res.ShortCode,
			OriginalURL: res.OriginalURL,
		}))
	}
}

// handleGetURLStats handles GET requests for a short code's click history
// and status.
func handleGetURLStats(svc URLService) http.HandlerFunc {
	const successMsg = "The URL statistics retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		view, err := svc.GetStatistics(r.Context(), shortCode)
		if err != nil {
			renderServiceError(w, r, err)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, view))
	}
}

// handleDeactivateURL handles DELETE requests to deactivate a short code.
// The record stays in the store but no longer counts as active.
func handleDeactivateURL(svc URLService) http.HandlerFunc {
	const successMsg = "The URL was successfully deactivated."

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		if err := svc.DeactivateURL(r.Context(), shortCode); err != nil {
			renderServiceError(w, r, err)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg))
	}
}

// handleListAll handles GET requests for the statistics of every stored URL.
func handleListAll(svc URLService) http.HandlerFunc {
	const op = "api.http.handleListAll"
	const successMsg = "All URLs retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		views, err := svc.ListAll(r.Context())
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, views))
	}
}

// handleRedirect handles GET requests on a bare short code: the visit is
// recorded as a click and the client is redirected to the original URL.
func handleRedirect(svc URLService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		res, err := svc.HandleRedirect(r.Context(), shortCode, models.Click{
			Referrer:  r.Referer(),
			UserAgent: r.UserAgent(),
			IPAddress: clientIP(r),
		})
		if err != nil {
			renderServiceError(w, r, err)
			return
		}

		http.Redirect(w, r, res.OriginalURL, http.StatusFound)
	}
}

// clientIP returns the request's remote IP without the port. The RealIP
// middleware has already resolved forwarding headers into RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
