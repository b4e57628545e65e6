package adapter

import "time"

type Config struct {
	Token       string
	PollTimeout time.Duration
	// UpdatesBuffer is only advisory; the router owns the channel.
	UpdatesBuffer int
}
