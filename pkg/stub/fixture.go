package stub

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/simpleab/pkg/simpleab"
)

// ErrInvalidFixture is returned for fixture files that cannot be loaded.
var ErrInvalidFixture = errors.New("invalid fixture")

// Fixture is the YAML document a Store can be loaded from.
type Fixture struct {
	Experiments    []simpleab.ExperimentDefinition `yaml:"experiments"`
	Segments       map[string]simpleab.Segment     `yaml:"segments"`
	DefaultSegment simpleab.Segment                `yaml:"defaultSegment"`
}

// ReadFixture decodes and validates a fixture from r.
func ReadFixture(r io.Reader) (Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return Fixture{}, fmt.Errorf("%w: %w", ErrInvalidFixture, err)
	}
	if err := f.validate(); err != nil {
		return Fixture{}, err
	}
	return f, nil
}

// ReadFixtureFile is ReadFixture for a file on disk.
func ReadFixtureFile(path string) (Fixture, error) {
	file, err := os.Open(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("%w: %w", ErrInvalidFixture, err)
	}
	defer func() { _ = file.Close() }()
	return ReadFixture(file)
}

// Load decodes a fixture from r and returns a Store serving it.
func Load(r io.Reader) (*Store, error) {
	f, err := ReadFixture(r)
	if err != nil {
		return nil, err
	}
	s := NewStore()
	s.Apply(f)
	return s, nil
}

// LoadFile is Load for a file on disk.
func LoadFile(path string) (*Store, error) {
	f, err := ReadFixtureFile(path)
	if err != nil {
		return nil, err
	}
	s := NewStore()
	s.Apply(f)
	return s, nil
}

func (f Fixture) validate() error {
	seen := make(map[string]bool, len(f.Experiments))
	for i, def := range f.Experiments {
		if def.ID == "" {
			return fmt.Errorf("%w: experiment #%d has no id", ErrInvalidFixture, i)
		}
		if seen[def.ID] {
			return fmt.Errorf("%w: duplicate experiment %q", ErrInvalidFixture, def.ID)
		}
		seen[def.ID] = true

		for _, st := range def.Stages {
			if _, err := simpleab.ParseStage(string(st.Stage)); err != nil {
				return fmt.Errorf("%w: experiment %q: %w", ErrInvalidFixture, def.ID, err)
			}
			for _, dim := range st.StageDimensions {
				for _, a := range dim.TreatmentAllocations {
					if _, err := simpleab.ParseTreatment(string(a.ID)); err != nil {
						return fmt.Errorf("%w: experiment %q dimension %q: %w", ErrInvalidFixture, def.ID, dim.Dimension, err)
					}
				}
			}
		}
	}
	return nil
}
