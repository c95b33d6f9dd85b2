package actors

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownActor is returned for an actor key that is not registered.
	ErrUnknownActor = errors.New("unknown actor")
	// ErrTooFewActors is returned when a registry would hold fewer than two actors.
	ErrTooFewActors = errors.New("at least two actors are required")
)

// Actor is one of the placeholder image providers a player can choose.
type Actor struct {
	Key         string `yaml:"key"`
	Name        string `yaml:"name"`
	URLTemplate string `yaml:"url"`
}

// ImageURL expands the {w} and {h} placeholders of the actor's URL template.
func (a Actor) ImageURL(w, h int) string {
	return strings.NewReplacer(
		"{w}", strconv.Itoa(w),
		"{h}", strconv.Itoa(h),
	).Replace(a.URLTemplate)
}

// Registry is an ordered set of actors.
type Registry struct {
	order  []string
	actors map[string]Actor
}

type registryFile struct {
	Actors []Actor `yaml:"actors"`
}

// DefaultRegistry returns the two classic placeholder actors.
func DefaultRegistry() *Registry {
	r, err := NewRegistry([]Actor{
		{Key: "cage", Name: "cage", URLTemplate: "http://www.placecage.com/c/{w}/{h}"},
		{Key: "murray", Name: "murray", URLTemplate: "https://www.fillmurray.com/{w}/{h}"},
	})
	if err != nil {
		panic(err)
	}
	return r
}

// NewRegistry validates and indexes the given actors, keeping their order.
func NewRegistry(list []Actor) (*Registry, error) {
	if len(list) < 2 {
		return nil, ErrTooFewActors
	}

	r := &Registry{
		order:  make([]string, 0, len(list)),
		actors: make(map[string]Actor, len(list)),
	}
	for _, a := range list {
		if a.Key == "" {
			return nil, fmt.Errorf("actor with empty key")
		}
		if _, exists := r.actors[a.Key]; exists {
			return nil, fmt.Errorf("duplicate actor key %q", a.Key)
		}
		if !strings.Contains(a.URLTemplate, "{w}") || !strings.Contains(a.URLTemplate, "{h}") {
			return nil, fmt.Errorf("actor %q: url template must contain {w} and {h}", a.Key)
		}
		if a.Name == "" {
			a.Name = a.Key
		}
		r.order = append(r.order, a.Key)
		r.actors[a.Key] = a
	}
	return r, nil
}

// LoadRegistry reads a YAML actor list from path.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read actors file: %w", err)
	}
	return ParseRegistry(data)
}

// ParseRegistry parses a YAML document of the form:
//
//	actors:
//	  - key: cage
//	    name: Nicolas Cage
//	    url: http://www.placecage.com/c/{w}/{h}
func ParseRegistry(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse actors: %w", err)
	}
	return NewRegistry(file.Actors)
}

// Keys returns the actor keys in configured order.
func (r *Registry) Keys() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of actors.
func (r *Registry) Len() int {
	return len(r.order)
}

// Get looks up an actor by key.
func (r *Registry) Get(key string) (Actor, error) {
	a, ok := r.actors[key]
	if !ok {
		return Actor{}, fmt.Errorf("%w: %s", ErrUnknownActor, key)
	}
	return a, nil
}
