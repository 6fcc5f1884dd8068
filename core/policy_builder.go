package core

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PolicyBuilder provides a fluent interface for creating detection policies
type PolicyBuilder struct {
	policy *Policy
}

// NewPolicyBuilder creates a new policy builder
func NewPolicyBuilder() *PolicyBuilder {
	return &PolicyBuilder{
		policy: &Policy{
			Metadata: PolicyMetadata{
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			},
			Rules: []Rule{},
		},
	}
}

// WithMetadata sets the policy metadata
func (b *PolicyBuilder) WithMetadata(version, description, author string) *PolicyBuilder {
	b.policy.Metadata.Version = version
	b.policy.Metadata.Description = description
	b.policy.Metadata.Author = author
	return b
}

// WithFrameworks adds compliance frameworks to the policy
func (b *PolicyBuilder) WithFrameworks(frameworks ...ComplianceFramework) *PolicyBuilder {
	b.policy.Metadata.Frameworks = frameworks
	return b
}

// AddRule adds a rule to the policy
func (b *PolicyBuilder) AddRule(id string, kind Kind, ruleType, pattern string) *PolicyBuilder {
	b.policy.Rules = append(b.policy.Rules, Rule{
		ID:      id,
		Kind:    kind,
		Type:    ruleType,
		Pattern: pattern,
	})
	return b
}

// AddRuleWithValues adds a rule that matches specific values instead of a pattern
func (b *PolicyBuilder) AddRuleWithValues(id string, kind Kind, values []string) *PolicyBuilder {
	b.policy.Rules = append(b.policy.Rules, Rule{
		ID:     id,
		Kind:   kind,
		Type:   "string",
		Values: values,
	})
	return b
}

// ConfigureLastRule configures additional properties for the last added rule
func (b *PolicyBuilder) ConfigureLastRule() *RuleConfigurator {
	if len(b.policy.Rules) == 0 {
		b.policy.Rules = append(b.policy.Rules, Rule{})
	}

	return &RuleConfigurator{
		builder: b,
		rule:    &b.policy.Rules[len(b.policy.Rules)-1],
	}
}

// Build constructs and returns the final policy
func (b *PolicyBuilder) Build() *Policy {
	b.policy.Metadata.UpdatedAt = time.Now()
	return b.policy
}

// RuleConfigurator provides methods to configure a rule
type RuleConfigurator struct {
	builder *PolicyBuilder
	rule    *Rule
}

// WithDescription sets the description for the rule
func (c *RuleConfigurator) WithDescription(description string) *RuleConfigurator {
	c.rule.Description = description
	return c
}

// WithWeight sets the risk weight of the rule's kind
func (c *RuleConfigurator) WithWeight(weight float64) *RuleConfigurator {
	c.rule.Weight = weight
	return c
}

// WithConfidence sets the confidence reported for the rule's matches
func (c *RuleConfigurator) WithConfidence(confidence float64) *RuleConfigurator {
	c.rule.Confidence = confidence
	return c
}

// WithFrameworks adds compliance frameworks to the rule
func (c *RuleConfigurator) WithFrameworks(frameworks ...ComplianceFramework) *RuleConfigurator {
	c.rule.Frameworks = frameworks
	return c
}

// Done returns to the policy builder
func (c *RuleConfigurator) Done() *PolicyBuilder {
	return c.builder
}

// SavePolicy saves a policy to a YAML file
func SavePolicy(policy *Policy, path string) error {
	if err := validatePolicy(policy); err != nil {
		return fmt.Errorf("invalid policy: %w", err)
	}

	policy.Metadata.UpdatedAt = time.Now()
	data, err := yaml.Marshal(policy)
	if err != nil {
		return fmt.Errorf("failed to marshal policy: %w", err)
	}

	// Calculate and update the hash for integrity checking
	policy.Metadata.Hash = calculatePolicyHash(data)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write policy file: %w", err)
	}

	return nil
}
