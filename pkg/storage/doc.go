// Package storage persists account snapshots so follower growth can be
// computed across fetches.
//
// Two backends implement Store:
//   - FileStore writes one JSON history per account, replacing it through a
//     temporary file and rename so a crash never leaves a torn file
//   - PostgresStore keeps one JSONB row per snapshot in a pgx pool
//
// Open picks the backend from the storage section of the config and
// returns a nil Store when persistence is disabled.
//
// Usage:
//
//	store, err := storage.Open(ctx, cfg.Storage)
//	if err != nil {
//	    return err
//	}
//	if store != nil {
//	    defer store.Close()
//	    err = store.Save(ctx, &storage.Snapshot{Username: "natgeo", Posts: posts})
//	}
package storage
