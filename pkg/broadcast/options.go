package broadcast

// Option configures a MemoryBroadcaster.
type Option[T any] func(*MemoryBroadcaster[T])

// WithCopy gives every subscriber its own copy of each message's data.
// Use it when T carries pointers or maps that receivers may modify.
func WithCopy[T any](fn func(T) T) Option[T] {
	return func(b *MemoryBroadcaster[T]) { b.copy = fn }
}

// WithDropHandler is called with every message evicted from a full
// subscriber buffer. It runs while the subscriber is locked and must not
// call back into the broadcaster.
func WithDropHandler[T any](fn func(Message[T])) Option[T] {
	return func(b *MemoryBroadcaster[T]) { b.onDrop = fn }
}
