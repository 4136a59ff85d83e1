package matrix

import (
	"context"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/id"
)

// SyncStateStore persists sync state as key/value pairs per bot user.
// *store.Store implements it.
type SyncStateStore interface {
	SaveSyncValue(ctx context.Context, userID, key, value string) error
	LoadSyncValue(ctx context.Context, userID, key string) (string, error)
}

var _ mautrix.SyncStore = (*dbSyncStore)(nil)

// dbSyncStore adapts a SyncStateStore to mautrix.SyncStore so the bot
// resumes from its last /sync position after a restart instead of replaying
// room history and re-handling old button presses.
type dbSyncStore struct {
	state SyncStateStore
}

func (s *dbSyncStore) SaveFilterID(ctx context.Context, userID id.UserID, filterID string) error {
	return s.state.SaveSyncValue(ctx, userID.String(), "filter_id", filterID)
}

func (s *dbSyncStore) LoadFilterID(ctx context.Context, userID id.UserID) (string, error) {
	return s.state.LoadSyncValue(ctx, userID.String(), "filter_id")
}

func (s *dbSyncStore) SaveNextBatch(ctx context.Context, userID id.UserID, nextBatchToken string) error {
	return s.state.SaveSyncValue(ctx, userID.String(), "next_batch", nextBatchToken)
}

func (s *dbSyncStore) LoadNextBatch(ctx context.Context, userID id.UserID) (string, error) {
	return s.state.LoadSyncValue(ctx, userID.String(), "next_batch")
}
