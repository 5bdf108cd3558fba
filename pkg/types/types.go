// Package types holds the shared API types of the modelserve module.
package types

// Response is a generic huma response wrapper.
type Response[T any] struct {
	Body T
}
