// Package collect moves data from the social API into the store. It is
// shared by the user and status commands and the import module.
package collect

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kingrea/birdwatcher/internal/social"
	"github.com/kingrea/birdwatcher/internal/store"
)

// DefaultTimelineLimit is the number of statuses requested per user.
const DefaultTimelineLimit = 100

// ErrNoClient is returned when no social client is configured.
var ErrNoClient = errors.New("collect: social client is not configured")

// UserRecord converts an API profile into a store row.
func UserRecord(u *social.User) store.User {
	return store.User{
		RemoteID:      u.ID,
		ScreenName:    u.ScreenName,
		Name:          u.Name,
		Location:      u.Location,
		Description:   u.Description,
		URL:           u.URL,
		Followers:     u.Followers,
		Friends:       u.Friends,
		StatusesCount: u.StatusesCount,
		Verified:      u.Verified,
		JoinedAt:      u.CreatedAt,
	}
}

// ImportUser fetches screenName and upserts it into the workspace.
func ImportUser(ctx context.Context, client social.Client, st *store.Store, workspaceID int64, screenName string) (*store.User, error) {
	if client == nil {
		return nil, ErrNoClient
	}
	screenName = strings.TrimPrefix(strings.TrimSpace(screenName), "@")
	if screenName == "" {
		return nil, fmt.Errorf("collect: screen name is required")
	}
	profile, err := client.User(ctx, screenName)
	if err != nil {
		return nil, err
	}
	return st.SaveUser(ctx, workspaceID, UserRecord(profile))
}

// Timeline fetches the most recent statuses of user.
func Timeline(ctx context.Context, client social.Client, user *store.User, limit int) ([]social.Status, error) {
	if client == nil {
		return nil, ErrNoClient
	}
	if user.RemoteID == "" {
		profile, err := client.User(ctx, user.ScreenName)
		if err != nil {
			return nil, err
		}
		user.RemoteID = profile.ID
	}
	if limit <= 0 {
		limit = DefaultTimelineLimit
	}
	return client.Timeline(ctx, user.RemoteID, limit)
}

// StatusRecord converts an API status into a store row.
func StatusRecord(s social.Status) store.Status {
	return store.Status{
		RemoteID: s.ID,
		Text:     s.Text,
		PostedAt: s.CreatedAt,
		URLs:     s.URLs,
	}
}
