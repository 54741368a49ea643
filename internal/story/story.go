// Package story loads the study plan assigning techniques and gestures to participants.
package story

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/gesturelab/internal/gesture"
	"github.com/verte-zerg/gesturelab/internal/model"
)

// GesturesPerModality is the number of gesture cycles run for one modality.
const GesturesPerModality = 4

// Modality is one showing technique with its four gesture refs.
type Modality struct {
	ShowTechnique   string `yaml:"ShowTechnique"`
	GestureTraining string `yaml:"GestureTraining"`
	GestureStatic   string `yaml:"GestureStatic"`
	GestureShort    string `yaml:"GestureShort"`
	GestureLong     string `yaml:"GestureLong"`
}

// Participant lists the modalities in the order they are run.
type Participant struct {
	Modalities []Modality `yaml:"Modalities"`
}

// Story is the complete study plan. The file may be YAML or the JSON form.
type Story struct {
	Participants []Participant `yaml:"Participants"`
}

// Plan is the resolved work for one participant and modality.
type Plan struct {
	Participant int
	Modality    int
	Technique   model.Technique
	Gestures    []gesture.Gesture
}

// Load reads a study story file.
func Load(path string) (Story, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Story{}, fmt.Errorf("failed to read study story: %w", err)
	}
	return Parse(data)
}

// Parse decodes a study story.
func Parse(data []byte) (Story, error) {
	var s Story
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Story{}, &gesture.ConfigError{Subject: "story", Reason: err.Error()}
	}
	return s, nil
}

// Resolve looks up the 1-based participant and modality and binds its gestures.
func (s Story) Resolve(participant, modality int, lib *gesture.Library) (Plan, error) {
	if participant < 1 || participant > len(s.Participants) {
		return Plan{}, &gesture.ConfigError{
			Subject: "story",
			Reason:  fmt.Sprintf("participant %d out of range (1-%d)", participant, len(s.Participants)),
		}
	}
	mods := s.Participants[participant-1].Modalities
	if modality < 1 || modality > len(mods) {
		return Plan{}, &gesture.ConfigError{
			Subject: "story",
			Reason:  fmt.Sprintf("modality %d out of range (1-%d) for participant %d", modality, len(mods), participant),
		}
	}
	mod := mods[modality-1]
	technique, err := ParseTechnique(mod.ShowTechnique)
	if err != nil {
		return Plan{}, err
	}
	plan := Plan{Participant: participant, Modality: modality, Technique: technique}
	for _, ref := range mod.Refs() {
		g, err := lib.Lookup(ref)
		if err != nil {
			return Plan{}, err
		}
		plan.Gestures = append(plan.Gestures, g)
	}
	return plan, nil
}

// Refs returns the gesture refs in cycle order, training first.
func (m Modality) Refs() []string {
	return []string{m.GestureTraining, m.GestureStatic, m.GestureShort, m.GestureLong}
}

// ParseTechnique maps the story label to a technique.
func ParseTechnique(label string) (model.Technique, error) {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "GHOST", "GHOST_HAND":
		return model.TechniqueGhost, nil
	case "EXTERNAL", "EXTERNAL_HAND":
		return model.TechniqueExternal, nil
	case "OVERRIDE", "OVERRIDE_HAND":
		return model.TechniqueOverride, nil
	default:
		return 0, &gesture.ConfigError{Subject: "story", Reason: fmt.Sprintf("unknown show technique %q", label)}
	}
}
