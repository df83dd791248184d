package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func validProperties() string {
	return `
# a comment
! also a comment

tumor.driver.componentType=CELL
tumor.driver.spatialType=LATTICE
tumor.driver.trialIndex=0
tumor.driver.initialSize=1
tumor.driver.maxStepCount=10
tumor.driver.maxTumorSize=1000
tumor.growth.birthRate=0.3
tumor.growth.deathRate=0.1
tumor.capacity.siteCapacity=1
tumor.lattice.periodLength=64
tumor.mutation.neoantigenMeanRate=0.01
tumor.mutation.selectiveMeanRate=0.01
tumor.mutation.selectionCoeff=0.05
tumor.report.dir=out
tumor.report.traj.CellCountTraj.run=true
tumor.report.traj.CellCountTraj.sampleInterval=5
`
}

func TestLoadValidProperties(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "trial.properties", validProperties())

	cfg, err := Load(path, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "CELL", cfg.ComponentType)
	assert.Equal(t, "LATTICE", cfg.SpatialType)
	assert.Equal(t, 64, cfg.PeriodLength)
	assert.Equal(t, 0.3, cfg.BirthRate)
	assert.Equal(t, "MOORE", cfg.Neighborhood)
	assert.Equal(t, "UNIFORM", cfg.ExpansionSelector)
	assert.Equal(t, "PINNED", cfg.MigrateModelType)
	assert.True(t, cfg.Validated())

	s, ok := cfg.Reports["traj.CellCountTraj"]
	require.True(t, ok)
	assert.True(t, s.Run)
	assert.EqualValues(t, 5, s.SampleInterval)
}

func TestLoadOverlayTakesPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "trial.properties", validProperties())

	cfg, err := Load(path, "", []string{"-Dtumor.growth.birthRate=0.9", "tumor.driver.trialIndex=3"})
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.BirthRate)
	assert.Equal(t, 3, cfg.TrialIndex)
}

func TestLoadMissingPropertiesFile(t *testing.T) {
	_, err := Load("/nonexistent/trial.properties", "", nil)
	require.Error(t, err)
}

func TestLoadMalformedLine(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.properties", "not-a-key-value-line\n")

	_, err := Load(path, "", nil)
	require.Error(t, err)
}

func TestLoadMalformedOverlay(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "trial.properties", validProperties())

	_, err := Load(path, "", []string{"no-equals-sign"})
	require.Error(t, err)
}

func TestLoadTOMLProfileMergesUnderProperties(t *testing.T) {
	dir := t.TempDir()
	profile := writeFile(t, dir, "preset.toml", `
[tumor.growth]
birthRate = 0.5
deathRate = 0.05
`)
	// properties file still wins over the profile for any key it sets.
	path := writeFile(t, dir, "trial.properties", validProperties())

	cfg, err := Load(path, profile, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.3, cfg.BirthRate, "properties file should override the TOML profile")
	assert.Equal(t, 0.1, cfg.DeathRate)
}

func TestValidateAccumulatesAllProblems(t *testing.T) {
	c := build(map[string]string{
		"tumor.driver.componentType": "BOGUS",
		"tumor.driver.spatialType":   "BOGUS",
		"tumor.driver.initialSize":   "0",
		"tumor.growth.birthRate":     "2",
	})
	err := c.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "componentType")
	assert.Contains(t, msg, "spatialType")
	assert.Contains(t, msg, "initialSize")
	assert.Contains(t, msg, "birthRate")
	assert.False(t, c.Validated())
}

func TestValidateRejectsBirthPlusDeathOverOne(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "trial.properties", validProperties())
	cfg, err := Load(path, "", []string{
		"tumor.growth.birthRate=0.8",
		"tumor.growth.deathRate=0.8",
	})
	require.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not exceed 1")
}

func TestFlattenTOMLDottedKeys(t *testing.T) {
	out := make(map[string]string)
	flattenTOML("", map[string]interface{}{
		"tumor": map[string]interface{}{
			"growth": map[string]interface{}{
				"birthRate": 0.4,
			},
		},
	}, out)
	assert.Equal(t, "0.4", out["tumor.growth.birthRate"])
}
