/*
Package handler provides the HTTP query endpoint for live presence.

REST-side logic uses it to decide, for example, whether an offline chat
participant should receive an email notification instead of a live push.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"alumnet/internal/pkg/errs"
	"alumnet/internal/pkg/resp"
)

// HandleGetPresence reports whether a user is online and how many live
// connections they currently hold.
func HandleGetPresence(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		if userID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		data := map[string]any{
			"userId":      userID,
			"online":      deps.Hub.IsUserOnline(userID),
			"connections": deps.Hub.LiveConnectionCount(userID),
		}
		resp.RespondSuccess(w, r, data)
	}
}
