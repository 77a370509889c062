package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/rs/zerolog/hlog"
	"github.com/technopolitica/open-page/internal/client"
	"github.com/technopolitica/open-page/internal/domain"
)

// Page elements are never interpreted, only counted.
type rawPage = domain.Page[json.RawMessage]

func writeAPIError(w http.ResponseWriter, r *http.Request, status int, apiErr domain.ApiError) {
	render.Status(r, status)
	render.JSON(w, r, apiErr)
}

// writeJSON is render.JSON without HTML escaping. render.JSON would turn the
// ampersands of source URLs into \u0026.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("failed to encode response")
	}
}

func inspect(r *http.Request, page rawPage) domain.InspectionReport {
	report := domain.NewInspectionReport(page)
	report.InspectedBy = GetAuthInfo(r).ClientID
	hlog.FromRequest(r).Debug().
		Stringer("report", report.ID).
		Bool("valid", report.Valid).
		Int("issues", len(report.Issues)).
		Msg("inspected page")
	return report
}

func sourceErrorDetail(err error) string {
	var statusErr *client.StatusError
	switch {
	case errors.As(err, &statusErr):
		return "source: " + statusErr.Error()
	case errors.Is(err, client.ErrMalformedPage):
		return "source: response is not a page document"
	default:
		return "source: failed to fetch page"
	}
}

func NewPagesRouter(env *Env) *chi.Mux {
	pagesRouter := chi.NewRouter()
	pagesRouter.Post("/inspect", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		page, err := client.DecodePage[json.RawMessage](r.Body)
		if err != nil {
			hlog.FromRequest(r).Info().Err(err).Msg("malformed page payload")
			writeAPIError(w, r, http.StatusBadRequest, domain.ApiError{
				Type:    domain.ApiErrorTypeBadParam,
				Details: []string{"page payload is not a valid page document"},
			})
			return
		}
		writeJSON(w, r, http.StatusOK, inspect(r, page))
	})
	pagesRouter.Post("/inspect/bulk", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var pages []rawPage
		if err := client.DecodeJSON(r.Body, &pages); err != nil {
			hlog.FromRequest(r).Info().Err(err).Msg("malformed bulk page payload")
			writeAPIError(w, r, http.StatusBadRequest, domain.ApiError{
				Type:    domain.ApiErrorTypeBadParam,
				Details: []string{"pages payload is not a JSON array of page documents"},
			})
			return
		}

		response := domain.BulkApiResponse[rawPage]{
			Total:    len(pages),
			Failures: []domain.FailureDetails[rawPage]{},
		}
		for _, page := range pages {
			report := inspect(r, page)
			if report.Valid {
				response.Success += 1
				continue
			}
			response.Failures = append(response.Failures, domain.FailureDetails[rawPage]{
				Item: page,
				ApiError: domain.ApiError{
					Type:    domain.ApiErrorTypeInconsistentPage,
					Details: report.Issues,
				},
			})
		}

		httpStatus := http.StatusOK
		// Only a batch in which every page is incoherent counts as a bad request.
		if response.Total > 0 && response.Success == 0 {
			httpStatus = http.StatusBadRequest
		}
		writeJSON(w, r, httpStatus, response)
	})
	pagesRouter.Get("/inspect", func(w http.ResponseWriter, r *http.Request) {
		rawSource := r.URL.Query().Get("source")
		if rawSource == "" {
			writeAPIError(w, r, http.StatusBadRequest, domain.ApiError{
				Type:    domain.ApiErrorTypeMissingParam,
				Details: []string{"source: missing required parameter"},
			})
			return
		}
		source, err := domain.ParseURL(rawSource)
		if err != nil || !source.IsHTTP() {
			writeAPIError(w, r, http.StatusBadRequest, domain.ApiError{
				Type:    domain.ApiErrorTypeBadParam,
				Details: []string{"source: must be an absolute http or https URL"},
			})
			return
		}

		page, err := client.FetchPage[json.RawMessage](r.Context(), env.pageClient, source)
		if err != nil {
			hlog.FromRequest(r).Warn().Err(err).Str("source", rawSource).Msg("failed to fetch page")
			writeAPIError(w, r, http.StatusBadGateway, domain.ApiError{
				Type:    domain.ApiErrorTypeUnknown,
				Details: []string{sourceErrorDetail(err)},
			})
			return
		}
		report := inspect(r, page)
		report.Source = source
		writeJSON(w, r, http.StatusOK, report)
	})
	return pagesRouter
}
