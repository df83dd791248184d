// Package config implements the property-file driver configuration
// (spec.md §6): a line-oriented `key=value` parser, a repeatable
// `-Dkey=value` overlay applied after the file loads, and an optional
// TOML profile layer for reusable experiment presets. There is no Java
// `.properties` reader anywhere in the retrieval pack, so this parser is
// hand-rolled in the teacher's idiom: a typed Config struct built up
// from raw string pairs, validated once with a Validate() method before
// a trial starts.
package config

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"tumorsim/internal/errors"
)

// ReportSetting is one `tumor.report.<group>.<name>.{run,sampleInterval}`
// pair.
type ReportSetting struct {
	Run            bool
	SampleInterval int64
}

// Config is the fully typed, validated driver configuration.
type Config struct {
	ComponentType string // CELL | LINEAGE | DEME
	SpatialType   string // LATTICE | POINT
	TrialIndex    int
	InitialSize   int
	MaxStepCount  int64
	MaxTumorSize  int

	BirthRate             float64
	DeathRate             float64
	LocalModelType        string // INTRINSIC
	ExplicitSamplingLimit int

	CapacityModelType string // UNIFORM
	SiteCapacity      int

	PeriodLength      int
	Neighborhood      string // MOORE | VON_NEUMANN
	ExpansionSelector string // UNIFORM | SPHERICAL

	MigrateModelType string // PINNED

	NeoantigenRateType string // POISSON
	NeoantigenMeanRate float64
	SelectiveRateType  string // POISSON
	SelectiveMeanRate  float64
	SelectionCoeff     float64
	NeutralMeanRate    float64

	Seed int64

	ReportDir      string
	Reports        map[string]ReportSetting
	MonitorEnabled bool
	CheckpointAddr string

	raw       map[string]string
	validated bool
}

// Load builds a Config from, in ascending precedence: an optional TOML
// profile, a required properties file, and a repeatable `-Dkey=value`
// overlay. It parses and validates in one step; a returned error is
// always a *errors.EngineError-wrapped ErrConfig diagnostic.
func Load(propertiesPath string, profilePath string, overlay []string) (*Config, error) {
	raw := make(map[string]string)

	if profilePath != "" {
		profile, err := LoadTOML(profilePath)
		if err != nil {
			return nil, err
		}
		for k, v := range profile {
			raw[k] = v
		}
	}

	props, err := parsePropertiesFile(propertiesPath)
	if err != nil {
		return nil, err
	}
	for k, v := range props {
		raw[k] = v
	}

	for _, pair := range overlay {
		k, v, err := parseOverlayPair(pair)
		if err != nil {
			return nil, err
		}
		raw[k] = v
	}

	cfg := build(raw)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parsePropertiesFile reads key=value pairs, skipping blank lines and
// lines starting with `#` or `!` (Java .properties comment prefixes).
func parsePropertiesFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrConfig, errors.SeverityError, fmt.Sprintf("opening property file %s", path), err)
	}
	defer f.Close()

	out := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx < 0 {
			return nil, errors.New(errors.ErrConfig, errors.SeverityError, fmt.Sprintf("%s:%d: expected key=value, got %q", path, lineNo, line))
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		out[key] = val
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrConfig, errors.SeverityError, fmt.Sprintf("reading property file %s", path), err)
	}
	return out, nil
}

// parseOverlayPair accepts either `-Dkey=value` or a bare `key=value`.
func parseOverlayPair(pair string) (string, string, error) {
	s := strings.TrimPrefix(pair, "-D")
	idx := strings.Index(s, "=")
	if idx < 0 {
		return "", "", errors.New(errors.ErrConfig, errors.SeverityError, fmt.Sprintf("malformed overlay %q, expected -Dkey=value", pair))
	}
	return strings.TrimSpace(s[:idx]), strings.TrimSpace(s[idx+1:]), nil
}

// LoadTOML reads an optional profile file via BurntSushi/toml, flattening
// every scalar value to its string form so it merges into the same raw
// key/value space a properties file populates. Nested tables are
// flattened with dotted keys (`[tumor.growth]` + `birthRate` becomes
// `tumor.growth.birthRate`), matching the properties file's own dotted
// key convention.
func LoadTOML(path string) (map[string]string, error) {
	var raw map[string]interface{}
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, errors.Wrap(errors.ErrConfig, errors.SeverityError, fmt.Sprintf("decoding TOML profile %s", path), err)
	}
	out := make(map[string]string)
	flattenTOML("", raw, out)
	return out, nil
}

func flattenTOML(prefix string, m map[string]interface{}, out map[string]string) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]interface{}:
			flattenTOML(key, val, out)
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

func build(raw map[string]string) *Config {
	c := &Config{raw: raw, Reports: make(map[string]ReportSetting)}

	c.ComponentType = strings.ToUpper(raw["tumor.driver.componentType"])
	c.SpatialType = strings.ToUpper(raw["tumor.driver.spatialType"])
	c.TrialIndex, _ = strconv.Atoi(raw["tumor.driver.trialIndex"])
	c.InitialSize, _ = strconv.Atoi(raw["tumor.driver.initialSize"])
	c.MaxStepCount, _ = strconv.ParseInt(raw["tumor.driver.maxStepCount"], 10, 64)
	c.MaxTumorSize, _ = strconv.Atoi(raw["tumor.driver.maxTumorSize"])

	c.BirthRate, _ = strconv.ParseFloat(raw["tumor.growth.birthRate"], 64)
	c.DeathRate, _ = strconv.ParseFloat(raw["tumor.growth.deathRate"], 64)
	c.LocalModelType = strings.ToUpper(defaultString(raw, "tumor.growth.localModelType", "INTRINSIC"))
	c.ExplicitSamplingLimit = defaultInt(raw, "tumor.growth.explicitSamplingLimit", 10)

	c.CapacityModelType = strings.ToUpper(defaultString(raw, "tumor.capacity.modelType", "UNIFORM"))
	c.SiteCapacity, _ = strconv.Atoi(raw["tumor.capacity.siteCapacity"])

	c.PeriodLength, _ = strconv.Atoi(raw["tumor.lattice.periodLength"])
	c.Neighborhood = strings.ToUpper(defaultString(raw, "tumor.lattice.neighborhood", "MOORE"))
	c.ExpansionSelector = strings.ToUpper(defaultString(raw, "tumor.lattice.expansionSelector", "UNIFORM"))

	c.MigrateModelType = strings.ToUpper(defaultString(raw, "tumor.migrate.modelType", "PINNED"))

	c.NeoantigenRateType = strings.ToUpper(defaultString(raw, "tumor.mutation.neoantigenRateType", "POISSON"))
	c.NeoantigenMeanRate, _ = strconv.ParseFloat(raw["tumor.mutation.neoantigenMeanRate"], 64)
	c.SelectiveRateType = strings.ToUpper(defaultString(raw, "tumor.mutation.selectiveRateType", "POISSON"))
	c.SelectiveMeanRate, _ = strconv.ParseFloat(raw["tumor.mutation.selectiveMeanRate"], 64)
	c.SelectionCoeff, _ = strconv.ParseFloat(raw["tumor.mutation.selectionCoeff"], 64)
	c.NeutralMeanRate, _ = strconv.ParseFloat(raw["tumor.mutation.neutralMeanRate"], 64)

	c.Seed, _ = strconv.ParseInt(defaultString(raw, "tumor.driver.seed", "0"), 10, 64)

	c.ReportDir = defaultString(raw, "tumor.report.dir", ".")
	c.MonitorEnabled = raw["tumor.monitor.enabled"] == "true"
	c.CheckpointAddr = raw["tumor.checkpoint.redisAddr"]

	c.Reports = parseReportSettings(raw)

	return c
}

// parseReportSettings picks out every `tumor.report.<group>.<name>.run`
// / `.sampleInterval` pair, keyed by `<group>.<name>`.
func parseReportSettings(raw map[string]string) map[string]ReportSetting {
	out := make(map[string]ReportSetting)
	for k, v := range raw {
		if !strings.HasPrefix(k, "tumor.report.") {
			continue
		}
		rest := strings.TrimPrefix(k, "tumor.report.")
		if strings.HasSuffix(rest, ".run") {
			name := strings.TrimSuffix(rest, ".run")
			s := out[name]
			s.Run = v == "true"
			out[name] = s
		} else if strings.HasSuffix(rest, ".sampleInterval") {
			name := strings.TrimSuffix(rest, ".sampleInterval")
			s := out[name]
			s.SampleInterval, _ = strconv.ParseInt(v, 10, 64)
			out[name] = s
		}
	}
	return out
}

func defaultString(raw map[string]string, key, fallback string) string {
	if v, ok := raw[key]; ok && v != "" {
		return v
	}
	return fallback
}

func defaultInt(raw map[string]string, key string, fallback int) int {
	if v, ok := raw[key]; ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// Validate checks every required key is present and in range, mirroring
// the enumerated-keyword-plus-range-check shape of the pack's
// SingleHostConfig.Validate(): one accumulated diagnostic rather than
// failing on the first problem, so a misconfigured property file reports
// everything wrong with it in one pass.
func (c *Config) Validate() error {
	var problems []string

	switch c.ComponentType {
	case "CELL", "LINEAGE", "DEME":
	default:
		problems = append(problems, fmt.Sprintf("tumor.driver.componentType must be CELL, LINEAGE, or DEME, got %q", c.ComponentType))
	}
	switch c.SpatialType {
	case "LATTICE", "POINT":
	default:
		problems = append(problems, fmt.Sprintf("tumor.driver.spatialType must be LATTICE or POINT, got %q", c.SpatialType))
	}
	if c.TrialIndex < 0 {
		problems = append(problems, "tumor.driver.trialIndex must be non-negative")
	}
	if c.InitialSize <= 0 {
		problems = append(problems, "tumor.driver.initialSize must be positive")
	}
	if c.MaxStepCount <= 0 {
		problems = append(problems, "tumor.driver.maxStepCount must be positive")
	}
	if c.MaxTumorSize <= 0 {
		problems = append(problems, "tumor.driver.maxTumorSize must be positive")
	}
	if c.BirthRate < 0 || c.BirthRate > 1 {
		problems = append(problems, "tumor.growth.birthRate must be in [0,1]")
	}
	if c.DeathRate < 0 || c.DeathRate > 1 {
		problems = append(problems, "tumor.growth.deathRate must be in [0,1]")
	}
	if c.BirthRate+c.DeathRate > 1 {
		problems = append(problems, "tumor.growth.birthRate + tumor.growth.deathRate must not exceed 1")
	}
	if c.LocalModelType != "INTRINSIC" {
		problems = append(problems, fmt.Sprintf("tumor.growth.localModelType must be INTRINSIC, got %q", c.LocalModelType))
	}
	if c.CapacityModelType != "UNIFORM" {
		problems = append(problems, fmt.Sprintf("tumor.capacity.modelType must be UNIFORM, got %q", c.CapacityModelType))
	}
	if c.SiteCapacity <= 0 {
		problems = append(problems, "tumor.capacity.siteCapacity must be positive")
	}
	if c.SpatialType == "LATTICE" && c.PeriodLength <= 0 {
		problems = append(problems, "tumor.lattice.periodLength must be positive when spatialType=LATTICE")
	}
	switch c.Neighborhood {
	case "MOORE", "VON_NEUMANN":
	default:
		problems = append(problems, fmt.Sprintf("tumor.lattice.neighborhood must be MOORE or VON_NEUMANN, got %q", c.Neighborhood))
	}
	switch c.ExpansionSelector {
	case "UNIFORM", "SPHERICAL":
	default:
		problems = append(problems, fmt.Sprintf("tumor.lattice.expansionSelector must be UNIFORM or SPHERICAL, got %q", c.ExpansionSelector))
	}
	if c.NeutralMeanRate < 0 {
		problems = append(problems, "tumor.mutation.neutralMeanRate must be >= 0")
	}
	if c.MigrateModelType != "PINNED" {
		problems = append(problems, fmt.Sprintf("tumor.migrate.modelType must be PINNED, got %q", c.MigrateModelType))
	}
	if c.NeoantigenRateType != "POISSON" {
		problems = append(problems, fmt.Sprintf("tumor.mutation.neoantigenRateType must be POISSON, got %q", c.NeoantigenRateType))
	}
	if c.NeoantigenMeanRate < 0 {
		problems = append(problems, "tumor.mutation.neoantigenMeanRate must be >= 0")
	}
	if c.SelectiveRateType != "POISSON" {
		problems = append(problems, fmt.Sprintf("tumor.mutation.selectiveRateType must be POISSON, got %q", c.SelectiveRateType))
	}
	if c.SelectiveMeanRate < 0 {
		problems = append(problems, "tumor.mutation.selectiveMeanRate must be >= 0")
	}
	if c.SelectionCoeff < 0 {
		problems = append(problems, "tumor.mutation.selectionCoeff must be >= 0")
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		msg := fmt.Sprintf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
		return errors.New(errors.ErrConfig, errors.SeverityError, msg)
	}
	c.validated = true
	return nil
}

// Validated reports whether Validate has already succeeded on this
// Config. cmd/tumorctl does not consult it; it calls Validate directly.
func (c *Config) Validated() bool { return c.validated }
