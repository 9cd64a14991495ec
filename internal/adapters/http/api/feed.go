package api

import (
	"net/http"
	"strings"
)

// FeedHandler serves the personalized feed.
type FeedHandler struct {
	reader Reader
	auth   *Authenticator
}

// NewFeedHandler creates a new feed handler.
func NewFeedHandler(reader Reader, auth *Authenticator) *FeedHandler {
	return &FeedHandler{reader: reader, auth: auth}
}

// HandleGetFeed handles GET /explore/for-you. With token verification on,
// the user is the token subject or anonymous. Without it, the user_id query
// parameter names the user.
func (h *FeedHandler) HandleGetFeed(w http.ResponseWriter, r *http.Request) {
	var userID string
	if h.auth.Enabled() {
		if c := ClaimsFrom(r.Context()); c != nil {
			userID = c.Subject
		}
	} else {
		userID = strings.TrimSpace(r.URL.Query().Get("user_id"))
	}
	writeJSON(w, http.StatusOK, h.reader.Feed(r.Context(), userID))
}
