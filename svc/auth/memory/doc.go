// Package memory is an in-process auth.Provider. Passwords are bcrypt
// hashed, OAuth sign-in produces real Google and GitHub authorization URLs,
// and credential endpoints are rate limited.
//
// It backs local development and the end-to-end tests; production
// deployments use the kratos adapter.
package memory
