package narrative

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	types "github.com/yungbote/observer-backend/internal/domain"
)

//go:embed catalog.yaml
var catalogFS embed.FS

var keyPattern = regexp.MustCompile(`^[a-z0-9_.:-]{1,64}$`)

var (
	ErrUnknownEvent    = errors.New("unknown catalog event")
	ErrUnknownActivity = errors.New("unknown activity")
)

type DelayRange struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

type Persona struct {
	Username        string     `yaml:"username" json:"username"`
	Priority        int        `yaml:"priority" json:"priority"`
	ColorTheme      string     `yaml:"color_theme" json:"color_theme"`
	TriggerKeywords []string   `yaml:"trigger_keywords" json:"trigger_keywords"`
	ResponseDelayMs DelayRange `yaml:"response_delay_ms" json:"response_delay_ms"`
	Responses       []string   `yaml:"responses" json:"responses"`
}

type Event struct {
	ID            string        `yaml:"id" json:"id"`
	Title         string        `yaml:"title" json:"title"`
	Repeatable    bool          `yaml:"repeatable" json:"repeatable"`
	Player        bool          `yaml:"player" json:"player"`
	Instances     []string      `yaml:"instances" json:"instances,omitempty"`
	RequiresFlags []string      `yaml:"requires_flags" json:"requires_flags,omitempty"`
	Effects       types.Effects `yaml:"effects" json:"effects"`
}

// PlayerAllows reports whether a player may fire the event for instance.
func (e Event) PlayerAllows(instance string) bool {
	if !e.Player {
		return false
	}
	if !e.Repeatable {
		return instance == ""
	}
	return contains(e.Instances, instance)
}

type Activity struct {
	XP        int64    `yaml:"xp" json:"xp"`
	Player    bool     `yaml:"player" json:"player"`
	Instances []string `yaml:"instances" json:"instances,omitempty"`
}

// PlayerAllows reports whether a player may claim the activity for instance.
func (a Activity) PlayerAllows(instance string) bool {
	return a.Player && contains(a.Instances, instance)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

type Catalog struct {
	Version    int                 `yaml:"version"`
	Activities map[string]Activity `yaml:"activities"`
	Events     []Event             `yaml:"events"`
	Personas   []Persona           `yaml:"personas"`

	byID map[string]int
}

// Load reads the catalog from path, or the embedded default when path is
// empty.
func Load(path string) (*Catalog, error) {
	var (
		raw []byte
		err error
	)
	path = strings.TrimSpace(path)
	if path != "" {
		raw, err = os.ReadFile(path)
	} else {
		raw, err = catalogFS.ReadFile("catalog.yaml")
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	c.byID = make(map[string]int, len(c.Events))
	for i, ev := range c.Events {
		if !keyPattern.MatchString(ev.ID) || strings.Contains(ev.ID, "#") {
			return fmt.Errorf("catalog event %d: invalid id %q", i, ev.ID)
		}
		if _, dup := c.byID[ev.ID]; dup {
			return fmt.Errorf("catalog event %q: duplicate id", ev.ID)
		}
		if ev.Effects.XPGrant < 0 {
			return fmt.Errorf("catalog event %q: negative xp_grant", ev.ID)
		}
		if f := ev.Effects.Flag; f != nil && !keyPattern.MatchString(f.Key) {
			return fmt.Errorf("catalog event %q: invalid flag key %q", ev.ID, f.Key)
		}
		if ev.Player && ev.Repeatable && len(ev.Instances) == 0 {
			return fmt.Errorf("catalog event %q: repeatable player event needs instances", ev.ID)
		}
		if err := validateInstances(ev.Instances); err != nil {
			return fmt.Errorf("catalog event %q: %w", ev.ID, err)
		}
		for _, req := range ev.RequiresFlags {
			if !keyPattern.MatchString(req) {
				return fmt.Errorf("catalog event %q: invalid required flag %q", ev.ID, req)
			}
		}
		c.byID[ev.ID] = i
	}
	for key, a := range c.Activities {
		if !keyPattern.MatchString(key) {
			return fmt.Errorf("catalog activity %q: invalid key", key)
		}
		if a.XP < 0 {
			return fmt.Errorf("catalog activity %q: negative xp", key)
		}
		if a.Player && len(a.Instances) == 0 {
			return fmt.Errorf("catalog activity %q: player activity needs instances", key)
		}
		if err := validateInstances(a.Instances); err != nil {
			return fmt.Errorf("catalog activity %q: %w", key, err)
		}
	}
	seen := make(map[string]bool, len(c.Personas))
	for i, p := range c.Personas {
		name := strings.TrimSpace(p.Username)
		if name == "" {
			return fmt.Errorf("catalog persona %d: missing username", i)
		}
		if seen[strings.ToLower(name)] {
			return fmt.Errorf("catalog persona %q: duplicate username", name)
		}
		seen[strings.ToLower(name)] = true
		if len(p.TriggerKeywords) == 0 {
			return fmt.Errorf("catalog persona %q: no trigger keywords", name)
		}
		if p.ResponseDelayMs.Min < 0 || p.ResponseDelayMs.Max < p.ResponseDelayMs.Min {
			return fmt.Errorf("catalog persona %q: invalid delay range", name)
		}
		if len(p.Responses) == 0 {
			return fmt.Errorf("catalog persona %q: no responses", name)
		}
	}
	return nil
}

func (c *Catalog) Event(id string) (Event, error) {
	i, ok := c.byID[id]
	if !ok {
		return Event{}, fmt.Errorf("%w: %s", ErrUnknownEvent, id)
	}
	return c.Events[i], nil
}

func validateInstances(instances []string) error {
	seen := make(map[string]bool, len(instances))
	for _, in := range instances {
		if !keyPattern.MatchString(in) || strings.Contains(in, "#") {
			return fmt.Errorf("invalid instance %q", in)
		}
		if seen[in] {
			return fmt.Errorf("duplicate instance %q", in)
		}
		seen[in] = true
	}
	return nil
}

func (c *Catalog) Activity(key string) (Activity, error) {
	a, ok := c.Activities[key]
	if !ok {
		return Activity{}, fmt.Errorf("%w: %s", ErrUnknownActivity, key)
	}
	return a, nil
}

func (c *Catalog) ActivityXP(key string) (int64, error) {
	a, err := c.Activity(key)
	if err != nil {
		return 0, err
	}
	return a.XP, nil
}
