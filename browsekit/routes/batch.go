package routes

import (
	"context"
	"errors"
	"net/http"
	"time"

	"browsekit/browsekit/controllers"
	"browsekit/browsekit/utils/apperrors"
	"browsekit/browsekit/utils/logging"
	"browsekit/browsekit/utils/types"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
)

var errInvalidLimit = apperrors.Invalid("limit", "must be an integer in 1..100")

// batchStream runs one batch per connection. The client sends a
// BatchSearchRequest, then receives an "item" event per query and a final
// "summary" event.
func batchStream(ctrl *controllers.ScrapeController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusInternalError, "internal error")

		ctx := r.Context()
		var req types.BatchSearchRequest
		readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err = wsjson.Read(readCtx, conn, &req)
		cancel()
		if err != nil {
			wsjson.Write(ctx, conn, types.BatchEvent{Type: "error", Error: "invalid json"})
			conn.Close(websocket.StatusUnsupportedData, "invalid json")
			return
		}
		if err := ctrl.ValidateBatch(req); err != nil {
			wsjson.Write(ctx, conn, types.BatchEvent{Type: "error", Error: err.Error()})
			conn.Close(websocket.StatusPolicyViolation, "invalid batch")
			return
		}

		// The read side only serves control frames from here on; a client
		// close cancels ctx and with it the remaining items.
		ctx = conn.CloseRead(ctx)

		resp, err := ctrl.BatchSearch(ctx, req, func(runID string, item types.BatchResult) {
			if err := wsjson.Write(ctx, conn, types.BatchEvent{Type: "item", RunID: runID, Item: &item}); err != nil {
				logging.AppLogger.Debug("batch stream write", zap.Error(err))
			}
		})
		if err != nil {
			wsjson.Write(ctx, conn, types.BatchEvent{Type: "error", Error: err.Error()})
			return
		}
		if err := wsjson.Write(ctx, conn, types.BatchEvent{Type: "summary", RunID: resp.RunID, Summary: resp}); err != nil {
			if !errors.Is(err, context.Canceled) {
				logging.AppLogger.Warn("batch stream summary", zap.Error(err))
			}
			return
		}
		conn.Close(websocket.StatusNormalClosure, "")
	}
}
