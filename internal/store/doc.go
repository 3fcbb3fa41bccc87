// Package store stacks decorators over a backend to build the Store handed
// to the object-graph runtime.
//
// Every chain starts with Direct, which adapts a types.Backend. Caching,
// Logging and AutoCommit wrap another Store and forward whatever they do not
// handle themselves. Closing any of them turns it into Closed, which rejects
// every further call with types.ErrInvalidState. InvalidBackend stands in for
// a backend that could not be opened and rejects every call with
// types.ErrUnsupported.
package store
