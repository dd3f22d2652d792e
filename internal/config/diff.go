package config

import (
	"reflect"
	"sort"
	"strings"

	logx "gotify2telegram/pkg/logx"
)

// Sections that take effect without a restart.
var liveSections = map[string]bool{
	"gotify.filter": true,
	"message":       true,
	"logging":       true,
}

// ConfigChange is the summary of a reload.
type ConfigChange struct {
	// Changed lists changed sections, sorted.
	Changed []string
	// Attrs are safe structured fields for logging; secrets appear only as
	// "<name>_set" booleans.
	Attrs []logx.Field
	// RestartRequired lists changed sections that only apply on restart.
	RestartRequired []string
}

// SummarizeConfigChange compares two configs section by section.
func SummarizeConfigChange(oldCfg, newCfg *Config) ConfigChange {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	var out ConfigChange
	mark := func(section string, attrs ...logx.Field) {
		out.Changed = append(out.Changed, section)
		out.Attrs = append(out.Attrs, attrs...)
		if !liveSections[section] {
			out.RestartRequired = append(out.RestartRequired, section)
		}
	}

	ot, nt := oldCfg.Telegram, newCfg.Telegram
	if ot.BotToken != nt.BotToken || ot.ChatID != nt.ChatID ||
		strings.TrimSpace(ot.APIURL) != strings.TrimSpace(nt.APIURL) ||
		strings.TrimSpace(ot.Proxy.URL) != strings.TrimSpace(nt.Proxy.URL) {
		mark("telegram",
			logx.Bool("telegram.token_changed", ot.BotToken != nt.BotToken),
			logx.Bool("telegram.chat_changed", ot.ChatID != nt.ChatID),
			logx.Bool("telegram.proxy_set", strings.TrimSpace(nt.Proxy.URL) != ""),
		)
	}

	og, ng := oldCfg.Gotify, newCfg.Gotify
	if strings.TrimSpace(og.ServerURL) != strings.TrimSpace(ng.ServerURL) || og.ClientToken != ng.ClientToken ||
		og.ReconnectMin != ng.ReconnectMin || og.ReconnectMax != ng.ReconnectMax {
		mark("gotify",
			logx.String("gotify.server_url", strings.TrimSpace(ng.ServerURL)),
			logx.Bool("gotify.client_token_changed", og.ClientToken != ng.ClientToken),
		)
	}
	ow, ob := og.Apps()
	nw, nb := ng.Apps()
	if !reflect.DeepEqual(normIDs(ow), normIDs(nw)) || !reflect.DeepEqual(normIDs(ob), normIDs(nb)) {
		mark("gotify.filter",
			logx.Int("gotify.whitelist_count", len(nw)),
			logx.Int("gotify.blacklist_count", len(nb)),
		)
	}

	if !reflect.DeepEqual(oldCfg.Message, newCfg.Message) {
		mark("message",
			logx.Int("message.max_length", newCfg.Message.MaxLength),
			logx.String("message.title_format", newCfg.Message.TitleFormat),
			logx.Int("message.include_count", len(newCfg.Message.Filter.IncludePatterns)),
			logx.Int("message.exclude_count", len(newCfg.Message.Filter.ExcludePatterns)),
		)
	}

	if oldCfg.Delivery != newCfg.Delivery {
		nd := newCfg.Delivery
		mark("delivery",
			logx.String("delivery.probe_every", nd.ProbeEvery),
			logx.Int("delivery.max_attempts", nd.MaxAttempts),
			logx.String("delivery.retry_base", nd.RetryBase),
		)
	}

	if oldCfg.Logging != newCfg.Logging {
		mark("logging",
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	var oS, nS StorageConfig
	if oldCfg.Storage != nil {
		oS = *oldCfg.Storage
	}
	if newCfg.Storage != nil {
		nS = *newCfg.Storage
	}
	if oS != nS {
		mark("storage",
			logx.String("storage.driver", strings.TrimSpace(nS.Driver)),
			logx.Bool("storage.path_set", strings.TrimSpace(nS.Path) != ""),
		)
	}

	var oA, nA AdminConfig
	if oldCfg.Admin != nil {
		oA = *oldCfg.Admin
	}
	if newCfg.Admin != nil {
		nA = *newCfg.Admin
	}
	if oA != nA {
		mark("admin",
			logx.Bool("admin.enabled", nA.Enabled),
			logx.String("admin.addr", strings.TrimSpace(nA.Addr)),
			logx.Bool("admin.token_set", nA.Token != ""),
		)
	}

	sort.Strings(out.Changed)
	sort.Strings(out.RestartRequired)
	return out
}

func normIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	cp := append([]int64(nil), ids...)
	sort.Slice(cp, func(i, j int) bool { return cp[i] < cp[j] })
	return cp
}
