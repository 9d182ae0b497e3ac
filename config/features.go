// config/features.go
package config

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Feature keys gated by license plan.
const (
	FeatureNews      = "news"
	FeatureLeave     = "leave"
	FeatureRewards   = "rewards"
	FeatureAssets    = "assets"
	FeaturePayslips  = "payslips"
	FeatureShop      = "shop"
	FeatureResellers = "resellers"
	FeatureRealtime  = "realtime"
)

//go:embed features.yaml
var featuresYAML []byte

// FeatureMap maps a license plan to the set of features it unlocks.
type FeatureMap map[string]map[string]bool

// Allows reports whether plan includes feature. Unknown plans allow nothing.
func (m FeatureMap) Allows(plan, feature string) bool {
	return m[strings.ToLower(plan)][feature]
}

// Features lists the features of a plan in no particular order.
func (m FeatureMap) Features(plan string) []string {
	set := m[strings.ToLower(plan)]
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	return out
}

// ParseFeatureMap decodes a `plans:` YAML document.
func ParseFeatureMap(data []byte) (FeatureMap, error) {
	var doc struct {
		Plans map[string][]string `yaml:"plans"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse feature map: %w", err)
	}
	if len(doc.Plans) == 0 {
		return nil, fmt.Errorf("parse feature map: no plans defined")
	}

	m := make(FeatureMap, len(doc.Plans))
	for plan, features := range doc.Plans {
		set := make(map[string]bool, len(features))
		for _, f := range features {
			set[strings.TrimSpace(f)] = true
		}
		m[strings.ToLower(plan)] = set
	}
	return m, nil
}

// DefaultFeatureMap returns the compiled-in plan map.
func DefaultFeatureMap() FeatureMap {
	m, err := ParseFeatureMap(featuresYAML)
	if err != nil {
		panic(err)
	}
	return m
}
