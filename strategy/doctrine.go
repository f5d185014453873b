// Package strategy turns a doctrine into objectives and keeps the standing
// macro targets in line with the game as it unfolds.
package strategy

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Doctrine is a strategic posture. Weights are 0.0–1.0; CompileDoctrine maps
// them to concrete objectives.
type Doctrine struct {
	Name            string  `yaml:"name" json:"name"`
	Rationale       string  `yaml:"rationale" json:"rationale"`
	EconomyPriority float64 `yaml:"economy_priority" json:"economy_priority"`
	Aggression      float64 `yaml:"aggression" json:"aggression"`
	DefensePriority float64 `yaml:"defense_priority" json:"defense_priority"`
	TechPriority    float64 `yaml:"tech_priority" json:"tech_priority"`
	InfantryWeight  float64 `yaml:"infantry_weight" json:"infantry_weight"`
	VehicleWeight   float64 `yaml:"vehicle_weight" json:"vehicle_weight"`
	AirWeight       float64 `yaml:"air_weight" json:"air_weight"`
	AttackGroupSize int     `yaml:"attack_group_size" json:"attack_group_size"`
	// DefendDuration is how long a defense holds the base before standing down.
	DefendDuration float64 `yaml:"defend_duration" json:"defend_duration"`
}

// DefaultDoctrine returns a balanced baseline doctrine.
func DefaultDoctrine() Doctrine {
	return Doctrine{
		Name:            "Balanced",
		Rationale:       "Default balanced strategy",
		EconomyPriority: 0.5,
		Aggression:      0.5,
		DefensePriority: 0.5,
		TechPriority:    0.5,
		InfantryWeight:  0.7,
		VehicleWeight:   0.3,
		AirWeight:       0.2,
		AttackGroupSize: 8,
		DefendDuration:  20,
	}
}

// Validate clamps all weights to their valid ranges.
func (d *Doctrine) Validate() {
	d.EconomyPriority = clamp(d.EconomyPriority, 0, 1)
	d.Aggression = clamp(d.Aggression, 0, 1)
	d.DefensePriority = clamp(d.DefensePriority, 0, 1)
	d.TechPriority = clamp(d.TechPriority, 0, 1)
	d.InfantryWeight = clamp(d.InfantryWeight, 0, 1)
	d.VehicleWeight = clamp(d.VehicleWeight, 0, 1)
	d.AirWeight = clamp(d.AirWeight, 0, 1)
	d.AttackGroupSize = clampInt(d.AttackGroupSize, 3, 30)
	d.DefendDuration = clamp(d.DefendDuration, 5, 120)
}

// LoadDoctrine reads the doctrine section of a YAML file over the default.
// An empty path yields the default.
func LoadDoctrine(path string) (Doctrine, error) {
	d := DefaultDoctrine()
	if path == "" {
		return d, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return d, fmt.Errorf("read doctrine: %w", err)
	}
	file := struct {
		Doctrine Doctrine `yaml:"doctrine"`
	}{Doctrine: d}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return d, fmt.Errorf("parse doctrine %s: %w", path, err)
	}
	file.Doctrine.Validate()
	return file.Doctrine, nil
}

// lerp linearly interpolates between min and max by t (0–1), returning an int.
func lerp(min, max int, t float64) int {
	return min + int(math.Round(float64(max-min)*t))
}

// lerpf linearly interpolates between min and max by t (0–1), returning a float64.
func lerpf(min, max, t float64) float64 {
	return min + (max-min)*t
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
