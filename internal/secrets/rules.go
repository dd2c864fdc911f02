// Package secrets implements the SecretsGuard stage's detection engines:
// a builtin regex ruleset, an external gitleaks-compatible subprocess, and
// the "both"/"auto" combinators over them, plus hard-deny filename matching
// and redaction.
package secrets

import (
	"fmt"
	"regexp"

	"github.com/BurntSushi/toml"
)

// Rule is one builtin detection pattern.
type Rule struct {
	ID          string
	Description string
	Pattern     *regexp.Regexp
}

// ruleFile is the on-disk TOML shape for the builtin ruleset, deliberately
// similar to a gitleaks rules file so a real one can later be substituted.
type ruleFile struct {
	Rules []ruleDef `toml:"rules"`
}

type ruleDef struct {
	ID          string `toml:"id"`
	Description string `toml:"description"`
	Regex       string `toml:"regex"`
}

// defaultRulesTOML is the embedded builtin ruleset. It covers the handful of
// high-value, low-false-positive patterns worth shipping without a real
// scanner: cloud provider keys, generic high-entropy assignments, PEM
// private key headers, and well-known platform tokens.
const defaultRulesTOML = `
[[rules]]
id = "aws-access-key-id"
description = "AWS access key ID"
regex = '''AKIA[0-9A-Z]{16}'''

[[rules]]
id = "generic-api-key-assignment"
description = "Generic high-entropy key/secret assignment"
regex = '''(?i)(api[_-]?key|secret|token|passwd|password)\s*[:=]\s*['"][A-Za-z0-9/+_=-]{16,}['"]'''

[[rules]]
id = "private-key-header"
description = "PEM private key header"
regex = '''-----BEGIN (RSA |EC |OPENSSH |DSA |PGP )?PRIVATE KEY-----'''

[[rules]]
id = "slack-token"
description = "Slack API token"
regex = '''xox[baprs]-[0-9A-Za-z-]{10,}'''

[[rules]]
id = "github-token"
description = "GitHub personal access token"
regex = '''gh[pousr]_[A-Za-z0-9]{36}'''
`

// LoadDefaultRules parses the embedded builtin ruleset.
func LoadDefaultRules() ([]Rule, error) {
	return ParseRules(defaultRulesTOML)
}

// ParseRules parses a TOML ruleset document into compiled Rules.
func ParseRules(doc string) ([]Rule, error) {
	var parsed ruleFile
	if _, err := toml.Decode(doc, &parsed); err != nil {
		return nil, fmt.Errorf("parsing rules TOML: %w", err)
	}

	rules := make([]Rule, 0, len(parsed.Rules))
	for _, def := range parsed.Rules {
		re, err := regexp.Compile(def.Regex)
		if err != nil {
			return nil, fmt.Errorf("compiling rule %q: %w", def.ID, err)
		}
		rules = append(rules, Rule{ID: def.ID, Description: def.Description, Pattern: re})
	}
	return rules, nil
}

// HardDenyPatterns are filename globs that force full file exclusion
// regardless of AlwaysInclude or redaction mode, seeded from
// discovery.DefaultIgnorePatterns' security-sensitive subset plus a few
// service-account/keyfile names that pattern set doesn't cover.
var HardDenyPatterns = []string{
	".env",
	".env.*",
	"*.pem",
	"*.key",
	"*.p12",
	"*.pfx",
	"*secret*",
	"*credential*",
	"*password*",
	"*serviceaccount*.json",
	"id_rsa",
	"id_rsa.pub",
	"id_ed25519",
	"id_ed25519.pub",
}
