package notify

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

// Rules route notifications per dataset, loaded from an optional YAML file:
//
//	default_topic: arn:aws:sns:eu-central-1:123:data-loads
//	rules:
//	  - dataset: orders
//	    topic: arn:aws:sns:eu-central-1:123:orders-alerts
//	    min_severity: warn
//
// Matching is by exact dataset name; datasets without a rule go to the
// default topic with no severity floor.
type Rules struct {
	DefaultTopic string `yaml:"default_topic"`
	Rules        []Rule `yaml:"rules"`
}

// Rule routes one dataset. An empty Topic keeps the default topic; an empty
// MinSeverity sends everything.
type Rule struct {
	Dataset     string   `yaml:"dataset"`
	Topic       string   `yaml:"topic"`
	MinSeverity Severity `yaml:"min_severity"`
}

// LoadRules reads and validates a routing rules file.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from config
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("rules %s: %w", path, err)
	}
	return &rules, nil
}

// Validate checks datasets and severities.
func (r *Rules) Validate() error {
	for i, rule := range r.Rules {
		if rule.Dataset == "" {
			return fmt.Errorf("rule %d: dataset is required", i+1)
		}
		switch rule.MinSeverity {
		case "", SeverityInfo, SeverityWarn, SeverityError:
		default:
			return fmt.Errorf("rule %d: unknown min_severity %q", i+1, rule.MinSeverity)
		}
	}
	return nil
}

// Route returns the topic for a dataset at a severity. send is false when a
// matching rule's severity floor suppresses the message. An empty topic means
// the caller's default applies.
func (r *Rules) Route(dataset string, severity Severity) (topic string, send bool) {
	for _, rule := range r.Rules {
		if rule.Dataset != dataset {
			continue
		}
		if rule.MinSeverity != "" && severityRank(severity) < severityRank(rule.MinSeverity) {
			return "", false
		}
		return rule.Topic, true
	}
	return r.DefaultTopic, true
}
