// Package logger builds configured slog loggers for hosts embedding the
// transition engine. Machines accept a *slog.Logger through
// stateable.WithLogger and emit debug records on successful transitions.
//
//	log := logger.New(logger.WithDevelopment("worker"))
//	machine := stateable.MustNew("Order",
//	    stateable.WithLogger(log),
//	    ...,
//	)
package logger
