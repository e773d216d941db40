// Package monitor polls controller telemetry on a fixed interval.
package monitor

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robotalks/pidctl.go/pkg/l0/pid"
)

// DefaultInterval is the polling interval if not specified.
const DefaultInterval = 100 * time.Millisecond

// Plan describes what to poll.
//
//	device: left-drive
//	interval: 200ms
//	banks: [1, 2]
//	commands: [current_cps, pid_gain, get_target_cps]
type Plan struct {
	// Device names the controller in published topics and metrics.
	Device   string        `yaml:"device"`
	Interval time.Duration `yaml:"interval"`
	// Banks are 1-based channel numbers, default to both.
	Banks []int `yaml:"banks"`
	// Commands are query command names or ids, default to all queries.
	Commands []string `yaml:"commands"`
}

// LoadPlan reads a YAML plan from a file.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePlan(data)
}

// ParsePlan parses, validates and normalizes a YAML plan.
func ParsePlan(data []byte) (*Plan, error) {
	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	plan.Normalize()
	return &plan, nil
}

// Validate checks the plan without modifying it.
func (p *Plan) Validate() error {
	if p.Device == "" {
		return errors.New("plan: device required")
	}
	if p.Interval < 0 {
		return errors.New("plan: interval must be > 0")
	}
	seen := make(map[int]bool)
	for _, b := range p.Banks {
		if b != 1 && b != 2 {
			return fmt.Errorf("plan: invalid bank %d", b)
		}
		if seen[b] {
			return fmt.Errorf("plan: duplicated bank %d", b)
		}
		seen[b] = true
	}
	for _, name := range p.Commands {
		e, err := pid.LookupName(pid.Channel, name)
		if err != nil {
			return fmt.Errorf("plan: %w", err)
		}
		if !e.IsQuery() {
			return fmt.Errorf("plan: %s is not a query command", e.Name)
		}
	}
	return nil
}

// Normalize fills defaults. It must be called after Validate.
func (p *Plan) Normalize() {
	if p.Interval == 0 {
		p.Interval = DefaultInterval
	}
	if len(p.Banks) == 0 {
		p.Banks = []int{1, 2}
	}
	if len(p.Commands) == 0 {
		for _, e := range pid.Entries(pid.Channel) {
			if e.IsQuery() {
				p.Commands = append(p.Commands, e.Name)
			}
		}
	}
}

// Entries resolves the command names.
func (p *Plan) Entries() ([]pid.Entry, error) {
	entries := make([]pid.Entry, 0, len(p.Commands))
	for _, name := range p.Commands {
		e, err := pid.LookupName(pid.Channel, name)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// BankList converts Banks into pid.Bank values.
func (p *Plan) BankList() []pid.Bank {
	banks := make([]pid.Bank, 0, len(p.Banks))
	for _, b := range p.Banks {
		banks = append(banks, pid.Bank(b-1))
	}
	return banks
}
