package models

// Mode is the effective connectivity mode.
type Mode string

const (
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
)

// ParseMode returns the Mode for s, or false when s is not a known mode.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeOnline, ModeOffline:
		return Mode(s), true
	}
	return "", false
}

// ConnectivityState layers the effective mode over raw reachability.
// EffectiveMode is Online only while DeviceReachable is true.
type ConnectivityState struct {
	DeviceReachable     bool `json:"deviceReachable"`
	EffectiveMode       Mode `json:"effectiveMode"`
	UserOverridePending bool `json:"userOverridePending"`
}

// Online reports whether network-bound widgets may use the network.
func (s ConnectivityState) Online() bool {
	return s.DeviceReachable && s.EffectiveMode == ModeOnline
}

// Language is a display language code.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHindi   Language = "hi"
)

// SupportedLanguages lists display languages in menu order.
var SupportedLanguages = []Language{LanguageEnglish, LanguageHindi}

// ParseLanguage returns the Language for code, or false when unsupported.
func ParseLanguage(code string) (Language, bool) {
	for _, l := range SupportedLanguages {
		if string(l) == code {
			return l, true
		}
	}
	return "", false
}

// LocaleState holds the active language and a revision that increments on
// every change.
type LocaleState struct {
	ActiveLanguage Language `json:"activeLanguage"`
	Revision       uint64   `json:"revision"`
}
