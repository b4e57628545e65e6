// Package router turns transport updates into reminder operations.
//
// Text commands, inline-button callbacks and mini app payloads are routed
// to handlers that run on a small worker pool behind a middleware chain
// (panic recovery, request log, timeout). The router also implements
// reminder.Dispatcher: due reminders are rendered here and handed to the
// notifier for delivery.
package router
