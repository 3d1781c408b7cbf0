package application

import "sync"

// SettingsValues are the runtime toggles a user can change while driving.
type SettingsValues struct {
	ChaosPct       float64 `json:"chaos_pct"`
	SpeakResponses bool    `json:"speak_responses"`
	StreamInterim  bool    `json:"stream_interim"`
	DebugLogs      bool    `json:"debug_logs"`
}

// SettingsPatch is a partial update; nil fields are left alone.
type SettingsPatch struct {
	ChaosPct       *float64 `json:"chaos_pct,omitempty"`
	SpeakResponses *bool    `json:"speak_responses,omitempty"`
	StreamInterim  *bool    `json:"stream_interim,omitempty"`
	DebugLogs      *bool    `json:"debug_logs,omitempty"`
}

func DefaultSettings() SettingsValues {
	return SettingsValues{
		ChaosPct:       70,
		SpeakResponses: true,
	}
}

type Settings struct {
	mu     sync.RWMutex
	values SettingsValues
}

func NewSettings(initial SettingsValues) *Settings {
	initial.ChaosPct = ClampChaos(initial.ChaosPct)
	return &Settings{values: initial}
}

func (s *Settings) Get() SettingsValues {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values
}

// Apply merges p into the settings and returns the result.
func (s *Settings) Apply(p SettingsPatch) SettingsValues {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ChaosPct != nil {
		s.values.ChaosPct = ClampChaos(*p.ChaosPct)
	}
	if p.SpeakResponses != nil {
		s.values.SpeakResponses = *p.SpeakResponses
	}
	if p.StreamInterim != nil {
		s.values.StreamInterim = *p.StreamInterim
	}
	if p.DebugLogs != nil {
		s.values.DebugLogs = *p.DebugLogs
	}
	return s.values
}

// ClampChaos keeps a chaos percentage within 0..100.
func ClampChaos(pct float64) float64 {
	switch {
	case pct != pct, pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}
