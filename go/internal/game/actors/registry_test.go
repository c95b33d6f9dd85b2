package actors

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	keys := r.Keys()
	if len(keys) != 2 || keys[0] != "cage" || keys[1] != "murray" {
		t.Fatalf("Keys() = %v, want [cage murray]", keys)
	}

	murray, err := r.Get("murray")
	if err != nil {
		t.Fatalf("Get(murray) failed: %v", err)
	}
	if got, want := murray.ImageURL(300, 200), "https://www.fillmurray.com/300/200"; got != want {
		t.Fatalf("ImageURL() = %q, want %q", got, want)
	}
}

func TestGetUnknownActor(t *testing.T) {
	_, err := DefaultRegistry().Get("travolta")
	if !errors.Is(err, ErrUnknownActor) {
		t.Fatalf("Get() error = %v, want ErrUnknownActor", err)
	}
}

func TestNewRegistryValidation(t *testing.T) {
	tests := []struct {
		name   string
		actors []Actor
	}{
		{
			name:   "single actor",
			actors: []Actor{{Key: "cage", URLTemplate: "/{w}/{h}"}},
		},
		{
			name: "duplicate key",
			actors: []Actor{
				{Key: "cage", URLTemplate: "/{w}/{h}"},
				{Key: "cage", URLTemplate: "/c/{w}/{h}"},
			},
		},
		{
			name: "missing placeholder",
			actors: []Actor{
				{Key: "cage", URLTemplate: "/{w}"},
				{Key: "murray", URLTemplate: "/{w}/{h}"},
			},
		},
		{
			name: "empty key",
			actors: []Actor{
				{Key: "", URLTemplate: "/{w}/{h}"},
				{Key: "murray", URLTemplate: "/{w}/{h}"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegistry(tt.actors); err == nil {
				t.Fatalf("NewRegistry() succeeded, want error")
			}
		})
	}
}

func TestLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actors.yaml")
	doc := `actors:
  - key: cage
    name: Nicolas Cage
    url: http://www.placecage.com/c/{w}/{h}
  - key: murray
    url: https://www.fillmurray.com/{w}/{h}
  - key: seagal
    url: https://www.stevensegallery.com/{w}/{h}
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write actors file: %v", err)
	}

	r, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry() failed: %v", err)
	}
	if r.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", r.Len())
	}

	cage, _ := r.Get("cage")
	if cage.Name != "Nicolas Cage" {
		t.Fatalf("cage.Name = %q, want %q", cage.Name, "Nicolas Cage")
	}
	murray, _ := r.Get("murray")
	if murray.Name != "murray" {
		t.Fatalf("murray.Name = %q, want key as default name", murray.Name)
	}
}
