package narrative

import (
	"errors"
	"testing"
)

func TestLoadEmbeddedCatalog(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ev, err := c.Event("mission_complete")
	if err != nil {
		t.Fatalf("Event: %v", err)
	}
	if !ev.Repeatable || ev.Effects.XPGrant != 10 {
		t.Fatalf("mission_complete: unexpected %+v", ev)
	}
	if _, err := c.Event("nope"); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("unknown event: want ErrUnknownEvent got %v", err)
	}
	xp, err := c.ActivityXP("chat_message")
	if err != nil || xp != 2 {
		t.Fatalf("ActivityXP chat_message: xp=%d err=%v", xp, err)
	}
	if _, err := c.ActivityXP("nope"); !errors.Is(err, ErrUnknownActivity) {
		t.Fatalf("unknown activity: want ErrUnknownActivity got %v", err)
	}
	if len(c.Personas) == 0 {
		t.Fatalf("expected personas")
	}
}

func TestPlayerGrantRules(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	mission, _ := c.Event("mission_complete")
	if !mission.PlayerAllows("m-3") || mission.PlayerAllows("m-999") || mission.PlayerAllows("") {
		t.Fatalf("mission_complete instance rules wrong: %+v", mission.Instances)
	}
	spike, _ := c.Event("anomaly_spike")
	if spike.PlayerAllows("x") {
		t.Fatalf("anomaly_spike must not be player-fireable")
	}
	first, _ := c.Event("first_contact")
	if !first.PlayerAllows("") || first.PlayerAllows("again") {
		t.Fatalf("first_contact rules wrong")
	}

	chat, _ := c.Activity("chat_message")
	if chat.PlayerAllows("any") {
		t.Fatalf("chat_message is server-granted only")
	}
	terminal, _ := c.Activity("terminal_query")
	if !terminal.PlayerAllows("t-01") || terminal.PlayerAllows("t-99") {
		t.Fatalf("terminal_query instance rules wrong: %+v", terminal.Instances)
	}
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	cases := map[string]string{
		"duplicate event": `
events:
  - id: a
  - id: a
`,
		"bad event id": `
events:
  - id: "Has Space"
`,
		"negative xp": `
events:
  - id: a
    effects: {xp_grant: -1}
`,
		"bad delay": `
personas:
  - username: x
    trigger_keywords: [k]
    responses: [r]
    response_delay_ms: {min: 10, max: 5}
`,
		"player repeatable without instances": `
events:
  - id: a
    repeatable: true
    player: true
`,
		"player activity without instances": `
activities:
  a: {xp: 1, player: true}
`,
		"duplicate instance": `
activities:
  a: {xp: 1, player: true, instances: [x, x]}
`,
		"no keywords": `
personas:
  - username: x
    responses: [r]
`,
	}
	for name, raw := range cases {
		if _, err := Parse([]byte(raw)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
