package config

import (
	"reflect"
	"sort"
)

// SummarizeChange returns the config sections that differ between two
// snapshots. Values are compared, never logged; tokens and auth keys stay
// out of the logs this way.
func SummarizeChange(oldCfg, newCfg *Config) []string {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	add := func(section string, differ bool) {
		if differ {
			changed = append(changed, section)
		}
	}

	add("logging", oldCfg.Logging != newCfg.Logging)
	add("frontend", oldCfg.Frontend != newCfg.Frontend)
	add("email", oldCfg.Email != newCfg.Email)
	add("websocket", !reflect.DeepEqual(oldCfg.Websocket, newCfg.Websocket))
	add("qq", !reflect.DeepEqual(oldCfg.QQ, newCfg.QQ))
	add("telegram", !reflect.DeepEqual(oldCfg.Telegram, newCfg.Telegram))
	add("bot", !reflect.DeepEqual(oldCfg.Bot, newCfg.Bot))
	add("poll", !reflect.DeepEqual(oldCfg.Poll, newCfg.Poll))
	add("journal", !reflect.DeepEqual(oldCfg.Journal, newCfg.Journal))

	sort.Strings(changed)
	return changed
}
