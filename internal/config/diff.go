package config

import "reflect"

// Change lists the config sections that differ between two configs.
// RestartRequired is the subset that is only read at startup.
type Change struct {
	Sections        []string
	RestartRequired []string
}

func (c Change) Empty() bool { return len(c.Sections) == 0 }

var restartSections = map[string]bool{
	"storage": true,
	"http":    true,
	"amqp":    true,
}

// Diff compares section by section. Values are never reported, so secrets
// stay out of logs.
func Diff(oldCfg, newCfg *Config) Change {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	sections := []struct {
		name     string
		old, new any
	}{
		{"telegram", oldCfg.Telegram, newCfg.Telegram},
		{"logging", oldCfg.Logging, newCfg.Logging},
		{"scheduler", oldCfg.Scheduler, newCfg.Scheduler},
		{"task_engine", oldCfg.TaskEngine, newCfg.TaskEngine},
		{"notifier", oldCfg.Notifier, newCfg.Notifier},
		{"storage", oldCfg.Storage, newCfg.Storage},
		{"reminders", oldCfg.Reminders, newCfg.Reminders},
		{"http", oldCfg.HTTP, newCfg.HTTP},
		{"amqp", oldCfg.AMQP, newCfg.AMQP},
	}
	var ch Change
	for _, s := range sections {
		if reflect.DeepEqual(s.old, s.new) {
			continue
		}
		ch.Sections = append(ch.Sections, s.name)
		if restartSections[s.name] {
			ch.RestartRequired = append(ch.RestartRequired, s.name)
		}
	}
	// The bot connection is built once; the mini app URL and log chat are
	// applied live.
	if oldCfg.Telegram.Token != newCfg.Telegram.Token || oldCfg.Telegram.PollTimeout != newCfg.Telegram.PollTimeout {
		ch.RestartRequired = append([]string{"telegram"}, ch.RestartRequired...)
	}
	return ch
}
