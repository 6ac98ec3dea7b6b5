// Package catalog holds the registry of gateable product features.
//
// A Feature describes one paid or free capability: its minimum plan, its free
// usage allowance, and the period that allowance resets on. The catalog is
// owned by the admin surface; the decision engine and client caches only read
// it. Two Store implementations are provided: MongoStore for production and
// MemoryStore for tests and local development.
//
// # Usage
//
//	store := catalog.NewMongoStore(db)
//	f, err := store.Get(ctx, "voice_calls")
//	if err != nil {
//		// errors.Is(err, catalog.ErrFeatureNotFound)
//	}
//
// Client caches pull the full catalog via TakeSnapshot and revalidate using
// the opaque Version token.
package catalog
