package domain

// RetentionPolicy maps severities and event types to retention windows in
// days. A type-specific window overrides the severity default, which
// overrides DefaultDays. A zero resolved window keeps events forever.
// Independently, MaxTotalEvents caps the store size via oldest-first
// eviction.
type RetentionPolicy struct {
	DefaultDays    int               `yaml:"default_days" json:"default_days"`
	SeverityDays   map[Severity]int  `yaml:"severity_days" json:"severity_days,omitempty"`
	TypeDays       map[EventType]int `yaml:"type_days" json:"type_days,omitempty"`
	MaxTotalEvents int               `yaml:"max_total_events" json:"max_total_events"`
}

// DefaultRetentionPolicy keeps low-severity noise short-lived and errors
// around long enough for audits.
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{
		DefaultDays: 30,
		SeverityDays: map[Severity]int{
			SeverityDebug:    7,
			SeverityInfo:     30,
			SeverityWarning:  60,
			SeverityError:    90,
			SeverityCritical: 180,
		},
		TypeDays: map[EventType]int{
			EventTypeSyncOperation: 14,
		},
		MaxTotalEvents: 100000,
	}
}

// ResolveDays returns the retention window for an event of the given type
// and severity.
func (p RetentionPolicy) ResolveDays(t EventType, s Severity) int {
	if d, ok := p.TypeDays[t]; ok {
		return d
	}
	if d, ok := p.SeverityDays[s]; ok {
		return d
	}
	return p.DefaultDays
}
