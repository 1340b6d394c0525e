// Package routing assigns categorized messages to agents.
package routing

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/zombor/receipt-inbox/internal/schema"
)

// Labels classify a message by industry and category.
type Labels struct {
	Industry string `json:"industry"`
	Category string `json:"category"`
}

// Skill is the "industry.category" form agents advertise.
func (l Labels) Skill() string {
	return l.Industry + "." + l.Category
}

// Agent handles messages whose labels match one of its skills.
type Agent struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Skills []string `json:"skills"`
}

// Directory is an immutable, ordered set of agents. Build one at startup
// and pass it to whatever needs to route messages.
type Directory struct {
	agents []Agent
}

// defaultAgents lists the agents used when no agents file is configured.
func defaultAgents() []Agent {
	return []Agent{
		{ID: "agent_001", Name: "Coach Gerver", Skills: []string{"insurance.endorsement", "insurance.docRequest"}},
		{ID: "agent_002", Name: "Alice Thompson", Skills: []string{"insurance.appetite", "insurance.billing"}},
		{ID: "agent_003", Name: "Bob Hernandez", Skills: []string{"consumer.receipt"}},
		{ID: "agent_004", Name: "Cara Park", Skills: []string{"insurance.underwriting"}},
	}
}

// DefaultDirectory returns a fresh copy of the built-in directory.
func DefaultDirectory() *Directory {
	return &Directory{agents: defaultAgents()}
}

var agentsSchema = schema.MustCompile("agents.json", `{
	"type": "array",
	"minItems": 1,
	"items": {
		"type": "object",
		"required": ["id", "name", "skills"],
		"properties": {
			"id": {"type": "string", "minLength": 1},
			"name": {"type": "string"},
			"skills": {
				"type": "array",
				"items": {"type": "string", "pattern": "^[^.]+\\.[^.]+$"}
			}
		}
	}
}`)

// NewDirectory copies agents into a Directory. Agent IDs must be unique.
func NewDirectory(agents []Agent) (*Directory, error) {
	seen := make(map[string]bool, len(agents))
	out := make([]Agent, 0, len(agents))
	for _, a := range agents {
		if a.ID == "" {
			return nil, fmt.Errorf("agent without id")
		}
		if seen[a.ID] {
			return nil, fmt.Errorf("duplicate agent id %q", a.ID)
		}
		seen[a.ID] = true
		a.Skills = append([]string(nil), a.Skills...)
		out = append(out, a)
	}
	return &Directory{agents: out}, nil
}

// LoadDirectory reads a JSON array of agents from path.
func LoadDirectory(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading agents file: %w", err)
	}
	if err := agentsSchema.Validate(data); err != nil {
		return nil, fmt.Errorf("agents file %s: %w", path, err)
	}
	var agents []Agent
	if err := json.Unmarshal(data, &agents); err != nil {
		return nil, fmt.Errorf("decoding agents file: %w", err)
	}
	return NewDirectory(agents)
}

// Assign returns the first agent, in directory order, with the skill the
// labels ask for.
func (d *Directory) Assign(labels Labels) (Agent, bool) {
	skill := labels.Skill()
	for _, a := range d.agents {
		for _, s := range a.Skills {
			if strings.EqualFold(s, skill) {
				return d.copyOf(a), true
			}
		}
	}
	return Agent{}, false
}

// Agents returns a copy of the directory's agents.
func (d *Directory) Agents() []Agent {
	out := make([]Agent, len(d.agents))
	for i, a := range d.agents {
		out[i] = d.copyOf(a)
	}
	return out
}

func (d *Directory) copyOf(a Agent) Agent {
	a.Skills = append([]string(nil), a.Skills...)
	return a
}
