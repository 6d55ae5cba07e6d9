package interceptors

import (
	"slices"

	grpcmiddleware "github.com/grpc-ecosystem/go-grpc-middleware"
	"google.golang.org/grpc"
)

// Chain is an ordered set of named interceptors that can be edited before it is committed.
// None of the operations are concurrency-safe.
type Chain[T any] struct {
	itemOrder []string
	items     map[string]T
}

func newChain[T any]() Chain[T] {
	return Chain[T]{items: make(map[string]T)}
}

// UnaryServerInterceptorChain builds a grpc.UnaryServerInterceptor
type UnaryServerInterceptorChain struct {
	Chain[grpc.UnaryServerInterceptor]
}

// StreamServerInterceptorChain builds a grpc.StreamServerInterceptor
type StreamServerInterceptorChain struct {
	Chain[grpc.StreamServerInterceptor]
}

// UnaryClientInterceptorChain builds a grpc.UnaryClientInterceptor
type UnaryClientInterceptorChain struct {
	Chain[grpc.UnaryClientInterceptor]
}

// StreamClientInterceptorChain builds a grpc.StreamClientInterceptor
type StreamClientInterceptorChain struct {
	Chain[grpc.StreamClientInterceptor]
}

func (c *Chain[T]) Exists(id string) bool {
	_, ok := c.items[id]
	return ok
}

// IDs returns the interceptor ids in chain order.
func (c *Chain[T]) IDs() []string {
	return slices.Clone(c.itemOrder)
}

// Items returns the interceptors in chain order.
func (c *Chain[T]) Items() []T {
	items := make([]T, 0, len(c.itemOrder))
	for _, id := range c.itemOrder {
		items = append(items, c.items[id])
	}
	return items
}

// Push adds a new interceptor onto the end of the chain.
// Returns false if an item with the specified ID already exists.
// Push("b", <inter>)
//
//	Before: a
//	After: a -> b
func (c *Chain[T]) Push(id string, inter T) bool {
	if c.Exists(id) {
		return false
	}

	c.items[id] = inter
	c.itemOrder = append(c.itemOrder, id)

	return true
}

// InsertAfter inserts an interceptor after the specified interceptor in the chain.
// Returns a boolean about whether the operation was successful.
// InsertAfter("a", "c", <inter>)
//
//	Before: a -> b
//	After: a -> c -> b
func (c *Chain[T]) InsertAfter(afterID string, id string, inter T) bool {
	if c.Exists(id) || !c.Exists(afterID) {
		return false
	}

	index := slices.Index(c.itemOrder, afterID)
	c.itemOrder = slices.Insert(c.itemOrder, index+1, id)
	c.items[id] = inter

	return true
}

// InsertBefore inserts a new interceptor before the specified interceptor in the chain.
// InsertBefore("b", "c", <inter>)
//
//	Before: a -> b
//	After: a -> c -> b
func (c *Chain[T]) InsertBefore(beforeID string, id string, inter T) bool {
	if c.Exists(id) || !c.Exists(beforeID) {
		return false
	}

	index := slices.Index(c.itemOrder, beforeID)
	c.itemOrder = slices.Insert(c.itemOrder, index, id)
	c.items[id] = inter

	return true
}

// Delete removes the specified interceptor from the list
// Delete("a")
//
//	Before: a -> b
//	After: b
func (c *Chain[T]) Delete(id string) bool {
	if !c.Exists(id) {
		return false
	}

	c.itemOrder = slices.DeleteFunc(c.itemOrder, func(v string) bool { return v == id })
	delete(c.items, id)

	return true
}

// Replace replaces the specified interceptor
// Replace("a")
//
//	Before: a -> b
//	After: a (new interceptor) -> b
func (c *Chain[T]) Replace(id string, inter T) bool {
	if !c.Exists(id) {
		return false
	}

	c.items[id] = inter

	return true
}

// Commit chains the interceptors into one, the first one being the outermost.
func (c *UnaryServerInterceptorChain) Commit() grpc.UnaryServerInterceptor {
	return grpcmiddleware.ChainUnaryServer(c.Items()...)
}

// Commit chains the interceptors into one, the first one being the outermost.
func (c *StreamServerInterceptorChain) Commit() grpc.StreamServerInterceptor {
	return grpcmiddleware.ChainStreamServer(c.Items()...)
}

// Commit chains the interceptors into one, the first one being the outermost.
func (c *UnaryClientInterceptorChain) Commit() grpc.UnaryClientInterceptor {
	return grpcmiddleware.ChainUnaryClient(c.Items()...)
}

// Commit chains the interceptors into one, the first one being the outermost.
func (c *StreamClientInterceptorChain) Commit() grpc.StreamClientInterceptor {
	return grpcmiddleware.ChainStreamClient(c.Items()...)
}

// NewUnaryServerInterceptorChain constructs a new interceptor chain that can be modified.
func NewUnaryServerInterceptorChain() *UnaryServerInterceptorChain {
	return &UnaryServerInterceptorChain{newChain[grpc.UnaryServerInterceptor]()}
}

// NewStreamServerInterceptorChain constructs a new interceptor chain that can be modified.
func NewStreamServerInterceptorChain() *StreamServerInterceptorChain {
	return &StreamServerInterceptorChain{newChain[grpc.StreamServerInterceptor]()}
}

// NewUnaryClientInterceptorChain constructs a new interceptor chain that can be modified.
func NewUnaryClientInterceptorChain() *UnaryClientInterceptorChain {
	return &UnaryClientInterceptorChain{newChain[grpc.UnaryClientInterceptor]()}
}

// NewStreamClientInterceptorChain constructs a new interceptor chain that can be modified.
func NewStreamClientInterceptorChain() *StreamClientInterceptorChain {
	return &StreamClientInterceptorChain{newChain[grpc.StreamClientInterceptor]()}
}
