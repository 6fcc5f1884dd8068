package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// ComplianceFramework identifies specific compliance frameworks
type ComplianceFramework string

const (
	// FrameworkGDPR represents GDPR compliance
	FrameworkGDPR ComplianceFramework = "GDPR"

	// FrameworkHIPAA represents HIPAA compliance
	FrameworkHIPAA ComplianceFramework = "HIPAA"

	// FrameworkPCI represents PCI-DSS compliance
	FrameworkPCI ComplianceFramework = "PCI"

	// FrameworkInternal represents company-internal policies
	FrameworkInternal ComplianceFramework = "INTERNAL"
)

// PolicyMetadata contains information about the policy
type PolicyMetadata struct {
	// Version of the policy
	Version string `yaml:"version"`

	// When the policy was created
	CreatedAt time.Time `yaml:"created_at"`

	// Last modification time
	UpdatedAt time.Time `yaml:"updated_at"`

	// Description of the policy
	Description string `yaml:"description"`

	// Author of the policy
	Author string `yaml:"author"`

	// Hash of the policy content for integrity verification
	Hash string `yaml:"hash,omitempty"`

	// Compliance frameworks this policy addresses
	Frameworks []ComplianceFramework `yaml:"frameworks,omitempty"`
}

// Rule adds a custom recognizer to the scanner
type Rule struct {
	// Unique identifier for the rule
	ID string `yaml:"id"`

	// Kind reported for matches of this rule
	Kind Kind `yaml:"kind"`

	// Type of rule: "regex" or "string"
	Type string `yaml:"type"`

	// Regex pattern to match
	Pattern string `yaml:"pattern,omitempty"`

	// List of strings to match
	Values []string `yaml:"values,omitempty"`

	// Risk weight of the kind; zero keeps the default weight
	Weight float64 `yaml:"weight,omitempty"`

	// Confidence reported for each match
	Confidence float64 `yaml:"confidence,omitempty"`

	// Compliance frameworks this rule addresses
	Frameworks []ComplianceFramework `yaml:"frameworks,omitempty"`

	// Description of the rule
	Description string `yaml:"description,omitempty"`
}

// Policy is a detection policy: custom recognizers run after the built-in ones
type Policy struct {
	// Metadata about the policy
	Metadata PolicyMetadata `yaml:"metadata"`

	// Rules contained in the policy
	Rules []Rule `yaml:"rules"`
}

// defaultRuleConfidence is used when a rule leaves confidence unset
const defaultRuleConfidence = 0.7

// LoadPolicy reads a YAML policy file and unmarshals it into a Policy struct
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	return ParsePolicy(data)
}

// ParsePolicy decodes and validates policy YAML
func ParsePolicy(data []byte) (*Policy, error) {
	var policy Policy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("failed to parse policy: %w", err)
	}

	// Ensure all rules have IDs
	for i := range policy.Rules {
		if policy.Rules[i].ID == "" {
			policy.Rules[i].ID = fmt.Sprintf("rule-%d", i+1)
		}
	}

	if err := validatePolicy(&policy); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}

	policy.Metadata.Hash = calculatePolicyHash(data)

	return &policy, nil
}

// validatePolicy checks if a policy is valid
func validatePolicy(policy *Policy) error {
	for i, rule := range policy.Rules {
		if rule.Kind == "" {
			return fmt.Errorf("rule %d has no kind", i)
		}

		switch rule.Type {
		case "regex":
			if rule.Pattern == "" {
				return fmt.Errorf("regex rule %d has no pattern", i)
			}
			if _, err := regexp.Compile(rule.Pattern); err != nil {
				return fmt.Errorf("regex rule %d: %w", i, err)
			}
		case "string":
			if len(rule.Values) == 0 {
				return fmt.Errorf("string rule %d has no values", i)
			}
		case "":
			return fmt.Errorf("rule %d has no type", i)
		default:
			return fmt.Errorf("rule %d has unsupported type %q", i, rule.Type)
		}

		if rule.Weight < 0 || rule.Weight > riskSaturation {
			return fmt.Errorf("rule %d weight %.2f out of range", i, rule.Weight)
		}
		if rule.Confidence < 0 || rule.Confidence > 1 {
			return fmt.Errorf("rule %d confidence %.2f out of range", i, rule.Confidence)
		}
	}

	return nil
}

// calculatePolicyHash generates a hash of the policy content for integrity checking
func calculatePolicyHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func (r Rule) patternInfo() (PatternInfo, error) {
	info := PatternInfo{
		Kind:        r.Kind,
		Confidence:  r.Confidence,
		Description: r.Description,
	}
	if info.Confidence == 0 {
		info.Confidence = defaultRuleConfidence
	}
	if info.Description == "" {
		info.Description = fmt.Sprintf("Custom rule: %s", r.ID)
	}

	switch r.Type {
	case "regex":
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return PatternInfo{}, err
		}
		info.Regex = re
	case "string":
		info.Values = r.Values
	default:
		return PatternInfo{}, fmt.Errorf("unsupported rule type %q", r.Type)
	}

	return info, nil
}

// GenerateDefaultPolicy creates a policy with recognizers for the account
// and insurance identifiers seen in support traffic
func GenerateDefaultPolicy() *Policy {
	return NewPolicyBuilder().
		WithMetadata("1.0.0", "Default extended detection policy", "legal-auditor").
		WithFrameworks(FrameworkHIPAA, FrameworkInternal).
		AddRule("account-id", "ACCOUNT_ID", "regex", `\bACC-\d{6}\b`).
		ConfigureLastRule().
		WithDescription("Customer account identifier").
		WithWeight(0.3).
		WithFrameworks(FrameworkInternal).
		Done().
		AddRule("insurance-id", "INSURANCE_ID", "regex", `\b[A-Z]{4}-\d{9}\b`).
		ConfigureLastRule().
		WithDescription("Health insurance member identifier").
		WithWeight(0.6).
		WithConfidence(0.8).
		WithFrameworks(FrameworkHIPAA).
		Done().
		Build()
}
