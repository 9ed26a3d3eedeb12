package routes

import (
	"net/http"
	"strconv"

	"browsekit/browsekit/config"
	"browsekit/browsekit/controllers"
	"browsekit/browsekit/middlewares"
	httputils "browsekit/browsekit/utils/http"
	"browsekit/browsekit/utils/types"

	"github.com/go-chi/chi/v5"
)

// ScrapeRoutes registers the browser-automation API under /api.
func ScrapeRoutes(ctrl *controllers.ScrapeController, cfg config.Config) chi.Router {
	r := chi.NewRouter()

	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.AuthMiddleware(cfg))
		if cfg.RateLimitEnabled {
			gr.Use(middlewares.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).Middleware)
		}

		// POST /search/google
		gr.Post("/search/google", handleJSON("Search failed", func(w http.ResponseWriter, r *http.Request) (any, int, error) {
			var req types.SearchRequest
			if err := httputils.DecodeJSON(w, r, &req); err != nil {
				return nil, http.StatusBadRequest, err
			}
			resp, err := ctrl.Search(r.Context(), req)
			if err != nil {
				return nil, 0, err
			}
			return resp, http.StatusOK, nil
		}))

		// POST /scrape/url
		gr.Post("/scrape/url", handleJSON("Scraping failed", func(w http.ResponseWriter, r *http.Request) (any, int, error) {
			var req types.ScrapeRequest
			if err := httputils.DecodeJSON(w, r, &req); err != nil {
				return nil, http.StatusBadRequest, err
			}
			resp, err := ctrl.Scrape(r.Context(), req)
			if err != nil {
				return nil, 0, err
			}
			return resp, http.StatusOK, nil
		}))

		// POST /screenshot
		gr.Post("/screenshot", func(w http.ResponseWriter, r *http.Request) {
			var req types.ScreenshotRequest
			if err := httputils.DecodeJSON(w, r, &req); err != nil {
				httputils.WriteError(w, http.StatusBadRequest, "Screenshot failed", err)
				return
			}
			shot, err := ctrl.Screenshot(r.Context(), req)
			if err != nil {
				httputils.WriteError(w, httputils.StatusFor(err), "Screenshot failed", err)
				return
			}
			w.Header().Set("Content-Type", shot.ContentType)
			w.Header().Set("Content-Length", strconv.Itoa(len(shot.Data)))
			w.Header().Set("Content-Disposition", `attachment; filename="`+shot.Filename+`"`)
			if shot.ArchiveKey != "" {
				w.Header().Set("X-Archive-Key", shot.ArchiveKey)
			}
			w.WriteHeader(http.StatusOK)
			w.Write(shot.Data)
		})

		// POST /batch/search
		gr.Post("/batch/search", handleJSON("Batch search failed", func(w http.ResponseWriter, r *http.Request) (any, int, error) {
			var req types.BatchSearchRequest
			if err := httputils.DecodeJSON(w, r, &req); err != nil {
				return nil, http.StatusBadRequest, err
			}
			resp, err := ctrl.BatchSearch(r.Context(), req, nil)
			if err != nil {
				return nil, 0, err
			}
			return resp, http.StatusOK, nil
		}))

		// GET /batch/runs?limit=20
		gr.Get("/batch/runs", handleJSON("Listing batch runs failed", func(w http.ResponseWriter, r *http.Request) (any, int, error) {
			limit := 20
			if s := r.URL.Query().Get("limit"); s != "" {
				n, err := strconv.Atoi(s)
				if err != nil || n <= 0 || n > 100 {
					return nil, http.StatusBadRequest, errInvalidLimit
				}
				limit = n
			}
			runs, err := ctrl.ListRuns(r.Context(), limit)
			if err != nil {
				return nil, 0, err
			}
			return runs, http.StatusOK, nil
		}))

		// GET /batch/ws
		gr.Get("/batch/ws", batchStream(ctrl))

		// POST /webhook/n8n
		gr.Post("/webhook/n8n", handleJSON("Webhook processing failed", func(w http.ResponseWriter, r *http.Request) (any, int, error) {
			var req types.WebhookRequest
			if err := httputils.DecodeJSON(w, r, &req); err != nil {
				return nil, http.StatusBadRequest, err
			}
			resp, err := ctrl.Webhook(r.Context(), req)
			if err != nil {
				return nil, 0, err
			}
			return resp, http.StatusOK, nil
		}))
	})

	return r
}
