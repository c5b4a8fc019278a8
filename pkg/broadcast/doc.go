// Package broadcast fans typed messages out to any number of in-process
// subscribers without ever blocking the publisher.
//
// Each subscriber owns a buffered channel. When a subscriber falls behind and
// its buffer is full, the oldest buffered message is discarded to make room,
// so a slow reader always ends up seeing the most recent message. This suits
// state snapshots and auth events, where the latest value matters more than
// the complete history.
//
//	b := broadcast.NewMemoryBroadcaster[string](8)
//	defer b.Close()
//
//	sub := b.Subscribe(ctx) // closed automatically when ctx is cancelled
//	_ = b.Broadcast(ctx, broadcast.Message[string]{Data: "hello"})
//
//	for msg := range sub.Receive(ctx) {
//		fmt.Println(msg.Data)
//	}
package broadcast
