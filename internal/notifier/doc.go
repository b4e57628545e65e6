// Package notifier delivers outgoing chat messages asynchronously.
//
// Callers enqueue a transport.Notification and return immediately. A small
// worker pool drains the queue through the transport adapter under a shared
// token-bucket rate limit and retries failed sends with jittered exponential
// backoff. Reminder notices and operator messages both go through here, so a
// slow chat API never blocks a timer fire.
//
// The last few deliveries are kept in memory for diagnostics and every
// outcome is published on the event bus (notifier.queued, notifier.sent,
// notifier.failed, notifier.dropped).
package notifier
