// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing plugin trees, manifests and model replies.
// They are not intended for production usage.
package testutil
