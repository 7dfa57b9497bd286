// Package notify forwards audit lines to optional external sinks on a
// best-effort basis. Delivery must never block or fail a query.
package notify

// Notifier accepts a message for asynchronous delivery.
type Notifier interface {
	Send(message string)
}

// Nop discards messages, used when no sink is configured.
type Nop struct{}

// Send implements Notifier.
func (Nop) Send(string) {}
