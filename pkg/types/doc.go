// Package types defines the identity and key model, the FeatureStore, Backend
// and Store contracts, the backend Factory contract, configuration, and the
// standard errors for the featurestore system.
//
// Everything above the substrates talks to these types only: the object-graph
// runtime issues FeatureStore calls, the registry hands out Factory values,
// and each backend family implements Backend.
package types
