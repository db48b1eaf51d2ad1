package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"arithmetic-practice-service/internal/domain"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Practice struct {
		DefaultCount int    `yaml:"defaultCount"`
		MaxCount     int    `yaml:"maxCount"`
		SessionTTL   string `yaml:"sessionTTL"`
	} `yaml:"practice"`
	CORS struct {
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"cors"`
	Grades []GradeConfig `yaml:"grades"`
}

// GradeConfig overrides one tier of the rule table.
type GradeConfig struct {
	Grade       int               `yaml:"grade"`
	MaxNumber   int               `yaml:"maxNumber"`
	Description string            `yaml:"description"`
	Operations  []OperationConfig `yaml:"operations"`
}

// OperationConfig carries the union of constraint fields; which ones apply depends on Op.
type OperationConfig struct {
	Op                   string `yaml:"op"`
	MinOperand           int    `yaml:"minOperand"`
	MaxOperand           int    `yaml:"maxOperand"`
	ResultBound          int    `yaml:"resultBound"`
	NoNegativeResult     bool   `yaml:"noNegativeResult"`
	MinFactor            int    `yaml:"minFactor"`
	MaxFactor            int    `yaml:"maxFactor"`
	MaxDivisor           int    `yaml:"maxDivisor"`
	RequireWholeQuotient bool   `yaml:"requireWholeQuotient"`
	MaxDecimalPlaces     int    `yaml:"maxDecimalPlaces"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadOrDefault is Load but treats a missing file as an empty config.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	return cfg, err
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// RuleTable returns the configured grade rules, or the defaults when none are set.
func (c Config) RuleTable() (*domain.RuleTable, error) {
	if len(c.Grades) == 0 {
		return domain.NewRuleTable(domain.DefaultRules())
	}
	rules := make([]domain.GradeRule, 0, len(c.Grades))
	for _, g := range c.Grades {
		rule := domain.GradeRule{
			Grade:       g.Grade,
			MaxNumber:   g.MaxNumber,
			Description: g.Description,
			Constraints: make(map[domain.Operation]domain.OperationConstraint, len(g.Operations)),
		}
		for _, oc := range g.Operations {
			constraint, err := oc.constraint()
			if err != nil {
				return nil, fmt.Errorf("%w: grade %d: %v", domain.ErrInvalidRules, g.Grade, err)
			}
			if _, dup := rule.Constraints[constraint.Operation()]; dup {
				return nil, fmt.Errorf("%w: grade %d: %q configured twice", domain.ErrInvalidRules, g.Grade, constraint.Operation())
			}
			rule.Operations = append(rule.Operations, constraint.Operation())
			rule.Constraints[constraint.Operation()] = constraint
		}
		rules = append(rules, rule)
	}
	return domain.NewRuleTable(rules)
}

func (oc OperationConfig) constraint() (domain.OperationConstraint, error) {
	op, err := domain.ParseOperation(oc.Op)
	if err != nil {
		return nil, err
	}
	switch op {
	case domain.OpAdd:
		return domain.AdditionRule{MinOperand: oc.MinOperand, MaxOperand: oc.MaxOperand, ResultBound: oc.ResultBound}, nil
	case domain.OpSubtract:
		return domain.SubtractionRule{MinOperand: oc.MinOperand, MaxOperand: oc.MaxOperand, NoNegativeResult: oc.NoNegativeResult}, nil
	case domain.OpMultiply:
		return domain.MultiplicationRule{MinFactor: oc.MinFactor, MaxFactor: oc.MaxFactor}, nil
	default:
		return domain.DivisionRule{MaxDivisor: oc.MaxDivisor, RequireWholeQuotient: oc.RequireWholeQuotient, MaxDecimalPlaces: oc.MaxDecimalPlaces}, nil
	}
}
