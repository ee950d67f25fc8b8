// Package mongodb provides MongoDB connectivity for ledger-backed
// machines: environment-driven configuration, connect with retry, and a
// health probe.
//
//	cfg, err := config.Load[mongodb.Config]()
//	db, err := mongodb.NewWithDatabase(ctx, cfg, "app")
//	storage, err := ledger.NewMongoStorage(db, "transitions")
package mongodb
