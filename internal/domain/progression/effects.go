package progression

// Effects are the side effects of one narrative event, applied in field
// order after the event is claimed. Every part is optional.
type Effects struct {
	Flag          *FlagEffect         `json:"flag,omitempty" yaml:"flag,omitempty"`
	XPGrant       int64               `json:"xp_grant,omitempty" yaml:"xp_grant,omitempty"`
	AnomalyDelta  int64               `json:"anomaly_delta,omitempty" yaml:"anomaly_delta,omitempty"`
	ObserverDelta int64               `json:"observer_delta,omitempty" yaml:"observer_delta,omitempty"`
	Notification  *NotificationEffect `json:"notification,omitempty" yaml:"notification,omitempty"`
}

type FlagEffect struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

type NotificationEffect struct {
	Type  string `json:"type" yaml:"type"`
	Title string `json:"title" yaml:"title"`
	Body  string `json:"body" yaml:"body"`
}

func (e Effects) IsEmpty() bool {
	return e.Flag == nil && e.XPGrant == 0 && e.AnomalyDelta == 0 && e.ObserverDelta == 0 && e.Notification == nil
}
