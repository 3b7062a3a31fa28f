package viseme

import (
	"fmt"

	"github.com/spf13/viper"
)

// DefaultDamping is the global multiplier applied after category scaling.
// Raw 1.0 morph weights read as shouting on most rigs.
const DefaultDamping = 0.85

// Calibration holds the retunable intensity presets: one multiplier per
// articulation category, optional per-viseme trims and a global damping term.
type Calibration struct {
	Damping    float32
	Categories map[Category]float32
	Visemes    map[ID]float32
}

var defaultCategoryMultipliers = map[Category]float32{
	CategoryJawFull:    1.0,
	CategoryJawMedium:  0.75,
	CategoryJawSlight:  0.55,
	CategoryJawMinimal: 0.4,
	CategoryLipPress:   0.9,
	CategoryLipSeal:    0.85,
	CategoryFunnel:     0.9,
	CategoryPucker:     0.95,
	CategoryTongue:     0.8,
}

// DefaultCalibration returns the built-in preset
func DefaultCalibration() *Calibration {
	categories := make(map[Category]float32, len(defaultCategoryMultipliers))
	for k, v := range defaultCategoryMultipliers {
		categories[k] = v
	}
	return &Calibration{
		Damping:    DefaultDamping,
		Categories: categories,
		Visemes:    make(map[ID]float32),
	}
}

// Multiplier returns the combined calibration factor for a morph applied
// under the given viseme definition.
func (c *Calibration) Multiplier(def Definition) float32 {
	m := c.Damping
	if cat, ok := c.Categories[def.Category]; ok {
		m *= cat
	}
	if trim, ok := c.Visemes[def.ID]; ok {
		m *= trim
	}
	return m
}

// Merge applies overrides onto the built-in preset. Unknown category or
// viseme keys are reported so a bad file is caught at load, not at runtime.
func Merge(damping float64, categories map[string]float64, visemes map[string]float64) (*Calibration, error) {
	cal := DefaultCalibration()

	if damping > 0 {
		cal.Damping = float32(damping)
	}

	for name, mult := range categories {
		cat := Category(name)
		if _, ok := defaultCategoryMultipliers[cat]; !ok {
			return nil, fmt.Errorf("unknown calibration category %q", name)
		}
		cal.Categories[cat] = float32(mult)
	}

	for name, mult := range visemes {
		// Fold case: viper lowercases keys, and ids like PP or U live in
		// calibration files under their lowered form.
		id, ok := ParseFold(name)
		if !ok {
			return nil, fmt.Errorf("unknown viseme %q in calibration", name)
		}
		cal.Visemes[id] = float32(mult)
	}

	return cal, nil
}

// calibrationFile is the YAML schema for hot-reloadable presets
type calibrationFile struct {
	Damping    float64            `mapstructure:"damping"`
	Categories map[string]float64 `mapstructure:"categories"`
	Visemes    map[string]float64 `mapstructure:"visemes"`
}

// LoadCalibrationFile reads a preset file and merges it over the defaults
func LoadCalibrationFile(path string) (*Calibration, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read calibration file: %w", err)
	}

	var file calibrationFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("parse calibration file: %w", err)
	}

	return Merge(file.Damping, file.Categories, file.Visemes)
}
