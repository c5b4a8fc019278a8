// Package storytime is the session lifecycle layer of the Storytime client.
//
// The pieces live in subpackages:
//
//   - svc/session holds the session state and its pure reducer.
//   - svc/auth reconciles provider auth events into that state and exposes
//     the login, signup, logout and password actions.
//   - svc/auth/memory and svc/auth/kratos are the identity providers.
//   - svc/profile resolves or creates the application profile of a user.
//   - cmd/storytime wires everything together behind a CLI.
//
// Shared infrastructure (logging, configuration, storage, metrics,
// notifications) sits under pkg.
package storytime
