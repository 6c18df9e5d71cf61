package strategyconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/wonny/factorband/internal/contracts"
)

// Source provides StrategyConfig per named strategy
type Source interface {
	Strategy(name string) (*StrategyConfig, error)
	Names() []string
}

// Registry is an in-memory Source
type Registry struct {
	byName map[string]StrategyConfig
}

// NewRegistry validates and registers configs. Defaults are applied first.
func NewRegistry(cfgs ...StrategyConfig) (*Registry, error) {
	r := &Registry{byName: make(map[string]StrategyConfig, len(cfgs))}
	for i := range cfgs {
		cfg := cfgs[i]
		ApplyDefaults(&cfg)
		if err := Validate(&cfg); err != nil {
			return nil, err
		}
		if _, dup := r.byName[cfg.Name]; dup {
			return nil, &contracts.ConfigurationError{
				Field:   fmt.Sprintf("strategies[%d].name", i),
				Message: fmt.Sprintf("duplicate strategy %q", cfg.Name),
			}
		}
		r.byName[cfg.Name] = cfg
	}
	return r, nil
}

// Strategy returns a copy of the named config
func (r *Registry) Strategy(name string) (*StrategyConfig, error) {
	cfg, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", contracts.ErrUnknownStrategy, name)
	}
	return &cfg, nil
}

// Names returns registered strategy names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load reads YAML file and returns Registry with raw bytes
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Registry, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	reg, err := Parse(data)
	if err != nil {
		return nil, data, err
	}
	return reg, data, nil
}

// Parse decodes strategy YAML
func Parse(data []byte) (*Registry, error) {
	var file File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode strategy config: %w", err)
	}

	if len(file.Strategies) == 0 {
		return nil, &contracts.ConfigurationError{Field: "strategies", Message: "at least one strategy required"}
	}

	return NewRegistry(file.Strategies...)
}

// Hash generates SHA256 hash from StrategyConfig (canonical JSON)
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(cfg *StrategyConfig) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
