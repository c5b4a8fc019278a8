// Package notifications implements the user-facing notice surface: short
// toast-style messages with a title, a description and a visual variant.
//
// A Manager stores every notification first and then hands it to a
// Deliverer for real-time display. Delivery is best effort: a failed
// delivery is logged and the stored copy stays available through List.
//
//	storage := notifications.NewMemoryStorage()
//	deliverer := notifications.NewBroadcastDeliverer(16)
//	manager := notifications.NewManager(storage, deliverer)
//
//	sub := deliverer.Subscribe(ctx, notifications.Anonymous)
//	manager.Notify(ctx, notifications.Destructive("Login failed", "Invalid email or password."))
//
// Notifications raised before anybody is signed in use the Anonymous
// recipient.
package notifications
