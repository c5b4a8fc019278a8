// Package kratos adapts an Ory Kratos deployment to auth.Provider using the
// native (API) self-service flows. The session token is kept in memory and,
// when a localstore.Storage is configured, under localstore.KeyAuthToken so
// it survives restarts.
//
// Kratos has no push channel for session changes. The adapter emits the
// events its own calls cause and Poll detects remote expiry or extension.
//
// The identity schema is expected to carry an "email" trait; any other
// signup metadata (such as "name") is sent as additional traits.
package kratos
