// Package access gates resource operations on a static role-to-capability
// policy. Capabilities are strings of the form "<resource>:read" and
// "<resource>:admin", lowercased, with ":*" wildcards allowed in policy files.
package access

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/harborline/shopfront/model"
)

type policyFile struct {
	Roles map[string][]string `yaml:"roles"`
}

// Decision is the gate outcome for one resource.
type Decision struct {
	Allowed bool `json:"allowed"`
	Admin   bool `json:"admin"`
}

// StaticPolicy resolves capabilities from a YAML file mapping roles to
// capability strings.
type StaticPolicy struct {
	path   string
	mu     sync.RWMutex
	policy policyFile
}

// NewStaticPolicy loads a policy from path.
func NewStaticPolicy(path string) (*StaticPolicy, error) {
	p := &StaticPolicy{path: path}
	if err := p.Sync(); err != nil {
		return nil, err
	}
	return p, nil
}

// Sync reloads the policy file from disk.
func (p *StaticPolicy) Sync() error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("access: reading policy file %s: %w", p.path, err)
	}

	var pf policyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return fmt.Errorf("access: parsing policy file %s: %w", p.path, err)
	}

	p.mu.Lock()
	p.policy = pf
	p.mu.Unlock()
	return nil
}

// Resolve returns the union of capabilities for all roles in the request
// context.
func (p *StaticPolicy) Resolve(rctx *model.RequestContext) (model.CapabilitySet, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	caps := make(model.CapabilitySet)
	for _, role := range rctx.Roles {
		for _, capability := range p.policy.Roles[role] {
			caps[capability] = true
		}
	}
	return caps, nil
}

// Loaded reports whether the policy has been read at least once. Used by the
// readiness probe.
func (p *StaticPolicy) Loaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.policy.Roles != nil
}

// Gate evaluates list-view access for a resource. Admin implies read.
func Gate(resolver model.CapabilityResolver, rctx *model.RequestContext, resource string) (Decision, error) {
	caps, err := resolver.Resolve(rctx)
	if err != nil {
		return Decision{}, err
	}

	lower := strings.ToLower(resource)
	admin := caps.Has(lower + ":admin")
	return Decision{
		Allowed: admin || caps.Has(lower+":read"),
		Admin:   admin,
	}, nil
}
