package infra

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/domain"

	"gopkg.in/yaml.v3"
)

// Formato:
//
//	classes:
//	  description: {max_requests: 10, window: 60s, block: 5m}
//	tiers:
//	  pro:
//	    description: {max_requests: 100, window: 60s, block: 1m}
type policyFile struct {
	Classes map[string]policyEntry            `yaml:"classes"`
	Tiers   map[string]map[string]policyEntry `yaml:"tiers"`
}

type policyEntry struct {
	MaxRequests int           `yaml:"max_requests"`
	Window      time.Duration `yaml:"window"`
	Block       time.Duration `yaml:"block"`
}

// LoadPolicyFile lê um PolicySet em YAML do disco.
func LoadPolicyFile(path string) (domain.PolicySet, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.PolicySet{}, fmt.Errorf("open policy file: %w", err)
	}
	defer func() { _ = f.Close() }()

	set, err := ParsePolicies(f)
	if err != nil {
		return domain.PolicySet{}, fmt.Errorf("policy file %s: %w", path, err)
	}
	return set, nil
}

// ParsePolicies decodifica e valida um PolicySet em YAML.
func ParsePolicies(r io.Reader) (domain.PolicySet, error) {
	var pf policyFile
	if err := yaml.NewDecoder(r).Decode(&pf); err != nil && !errors.Is(err, io.EOF) {
		return domain.PolicySet{}, fmt.Errorf("decode: %w", err)
	}

	set := domain.PolicySet{
		Classes: make(map[domain.ClassKey]domain.Policy, len(pf.Classes)),
		Tiers:   make(map[domain.Tier]map[domain.ClassKey]domain.Policy, len(pf.Tiers)),
	}
	for name, e := range pf.Classes {
		p, err := e.policy(name)
		if err != nil {
			return domain.PolicySet{}, err
		}
		set.Classes[p.Class] = p
	}
	for tier, classes := range pf.Tiers {
		if tier == "" {
			return domain.PolicySet{}, errors.New("tier name must not be empty")
		}
		table := make(map[domain.ClassKey]domain.Policy, len(classes))
		for name, e := range classes {
			p, err := e.policy(name)
			if err != nil {
				return domain.PolicySet{}, fmt.Errorf("tier %s: %w", tier, err)
			}
			table[p.Class] = p
		}
		set.Tiers[domain.Tier(tier)] = table
	}
	return set, nil
}

func (e policyEntry) policy(class string) (domain.Policy, error) {
	switch {
	case class == "":
		return domain.Policy{}, errors.New("class name must not be empty")
	case e.MaxRequests <= 0:
		return domain.Policy{}, fmt.Errorf("class %s: max_requests must be > 0", class)
	case e.Window <= 0:
		return domain.Policy{}, fmt.Errorf("class %s: window must be > 0", class)
	case e.Block < 0:
		return domain.Policy{}, fmt.Errorf("class %s: block must be >= 0", class)
	}
	return domain.Policy{
		Class:       domain.ClassKey(class),
		MaxRequests: e.MaxRequests,
		Window:      e.Window,
		Block:       e.Block,
	}, nil
}
