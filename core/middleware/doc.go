// Package middleware groups the Fiber middleware used by the server:
// rayid assigns a correlation id to every request, auth enforces the
// shared API key on all routes.
package middleware
