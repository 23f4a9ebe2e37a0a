/*
Package handler provides the HTTP trigger for follow notifications.

The follow graph itself is owned by the REST collaborators; this endpoint only
relays the live userFollowed event, fire-and-forget, after the mutation happened.
*/
package handler

import (
	"net/http"

	"alumnet/internal/pkg/errs"
	"alumnet/internal/pkg/req"
	"alumnet/internal/pkg/resp"
)

// FollowNotifyInput defines the JSON input structure for the follow trigger.
type FollowNotifyInput struct {
	FollowerID   string `json:"followerId"`
	FollowedID   string `json:"followedId"`
	FollowerName string `json:"followerName,omitempty"`
}

// HandleFollowNotify pushes userFollowed to the followed user's live connections.
// An offline target is a normal outcome: the request still succeeds.
func HandleFollowNotify(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input FollowNotifyInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.FollowerID == "" || input.FollowedID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		payload := map[string]any{
			"followerId":   input.FollowerID,
			"followerName": input.FollowerName,
		}
		deps.Hub.RelayFollowNotification(input.FollowedID, payload)

		data := map[string]any{
			"delivered": deps.Hub.IsUserOnline(input.FollowedID),
		}
		resp.RespondSuccess(w, r, data)
	}
}
