package workflow

import (
	"fmt"
	"sort"
	"strings"
)

// StateMachineBuilder builds a configured state machine
type StateMachineBuilder interface {
	// Configure returns the configuration for the given stage
	Configure(stage Stage) StageConfiguration

	// Build creates a new state machine positioned at the given stage
	Build(initial Stage) StateMachine
}

// StageConfiguration configures transitions out of a single stage
type StageConfiguration interface {
	// Permit allows a trigger to move to the target stage
	Permit(trigger Trigger, to Stage) StageConfiguration
}

type stageConfig struct {
	from        Stage
	transitions map[Trigger]Stage
}

type stateMachineBuilder struct {
	configurations map[Stage]*stageConfig
}

type stateMachine struct {
	current        Stage
	configurations map[Stage]*stageConfig
}

// NewBuilder creates a new state machine builder
func NewBuilder() StateMachineBuilder {
	return &stateMachineBuilder{
		configurations: make(map[Stage]*stageConfig),
	}
}

// Configure returns the configuration for the given stage. Terminal stages
// cannot be configured with outgoing transitions.
func (b *stateMachineBuilder) Configure(stage Stage) StageConfiguration {
	if !stage.IsValid() {
		panic(fmt.Sprintf("invalid stage: %s", stage))
	}
	if stage.IsTerminal() {
		panic(fmt.Sprintf("terminal stage cannot have transitions: %s", stage))
	}

	config, exists := b.configurations[stage]
	if !exists {
		config = &stageConfig{
			from:        stage,
			transitions: make(map[Trigger]Stage),
		}
		b.configurations[stage] = config
	}

	return config
}

// Build creates a new state machine positioned at the given stage
func (b *stateMachineBuilder) Build(initial Stage) StateMachine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial stage: %s", initial))
	}

	// Copy so later Configure calls do not leak into built machines
	configsCopy := make(map[Stage]*stageConfig, len(b.configurations))
	for stage, config := range b.configurations {
		transitionsCopy := make(map[Trigger]Stage, len(config.transitions))
		for trigger, to := range config.transitions {
			transitionsCopy[trigger] = to
		}
		configsCopy[stage] = &stageConfig{
			from:        stage,
			transitions: transitionsCopy,
		}
	}

	return &stateMachine{
		current:        initial,
		configurations: configsCopy,
	}
}

// Permit allows a trigger to move to the target stage. A trigger has one
// target per stage.
func (c *stageConfig) Permit(trigger Trigger, to Stage) StageConfiguration {
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target stage: %s", to))
	}
	if existing, dup := c.transitions[trigger]; dup {
		panic(fmt.Sprintf("trigger %s from %s already leads to %s", trigger, c.from, existing))
	}

	c.transitions[trigger] = to
	return c
}

func (m *stateMachine) Stage() Stage {
	return m.current
}

// CanFire reports whether a transition is registered for the trigger
func (m *stateMachine) CanFire(trigger Trigger) bool {
	config, exists := m.configurations[m.current]
	if !exists {
		return false
	}
	_, ok := config.transitions[trigger]
	return ok
}

func (m *stateMachine) Fire(trigger Trigger) error {
	if m.current.IsTerminal() {
		return fmt.Errorf("%w: cannot fire trigger %s from stage %s", ErrTerminalStage, trigger, m.current)
	}
	if !m.CanFire(trigger) {
		return fmt.Errorf("%w: cannot fire trigger %s from stage %s (permitted: %s)",
			ErrInvalidTransition, trigger, m.current, describeTriggers(m.PermittedTriggers()))
	}

	m.current = m.configurations[m.current].transitions[trigger]
	return nil
}

// PermittedTriggers returns the triggers registered for the current stage in sorted order
func (m *stateMachine) PermittedTriggers() []Trigger {
	config, exists := m.configurations[m.current]
	if !exists {
		return []Trigger{}
	}

	triggers := make([]Trigger, 0, len(config.transitions))
	for trigger := range config.transitions {
		triggers = append(triggers, trigger)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })

	return triggers
}

func describeTriggers(triggers []Trigger) string {
	if len(triggers) == 0 {
		return "none"
	}
	names := make([]string, len(triggers))
	for i, t := range triggers {
		names[i] = t.String()
	}
	return strings.Join(names, ", ")
}
