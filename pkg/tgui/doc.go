// Package tgui provides small Telegram UI helpers:
//   - HTML escaping for ParseMode="HTML"
//   - inline keyboards built from transport.Button
//   - callback data in the "prefix:action:arg..." shape
//   - a message builder with HTML and no-preview defaults
package tgui
