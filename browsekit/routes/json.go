package routes

import (
	"net/http"

	httputils "browsekit/browsekit/utils/http"
	"browsekit/browsekit/utils/logging"

	"go.uber.org/zap"
)

// generic wrapper to reduce boilerplate; summary is the "error" field of
// failure responses. A zero status on error is derived from the error type.
func handleJSON(summary string, handler func(w http.ResponseWriter, r *http.Request) (any, int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, status, err := handler(w, r)
		if err != nil {
			if status == 0 {
				status = httputils.StatusFor(err)
			}
			if status >= http.StatusInternalServerError {
				logging.ErrorLogger.Error(summary, zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
			}
			httputils.WriteError(w, status, summary, err)
			return
		}
		if res == nil {
			w.WriteHeader(status)
			return
		}
		httputils.WriteJSON(w, status, res)
	}
}
