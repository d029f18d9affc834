package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/plus3/ecstore/ecs"
	"gopkg.in/yaml.v3"
)

// Scene describes the bodies a stress run starts with.
type Scene struct {
	Gravity     Vec3         `yaml:"gravity"`
	Restitution float32      `yaml:"restitution"`
	Groups      []SpawnGroup `yaml:"groups"`
}

// SpawnGroup spawns Count bodies at uniformly random positions inside the box
// spanned by Min and Max.
type SpawnGroup struct {
	Name     string  `yaml:"name"`
	Count    int     `yaml:"count"`
	Min      Vec3    `yaml:"min"`
	Max      Vec3    `yaml:"max"`
	Velocity Vec3    `yaml:"velocity"`
	Jitter   float32 `yaml:"jitter"` // random velocity added per axis, in [-Jitter, Jitter]
	Radius   float32 `yaml:"radius"` // 0 spawns without a collider
	Mass     float32 `yaml:"mass"`
	Static   bool    `yaml:"static"`
	Lifetime float32 `yaml:"lifetime"` // seconds, 0 lives forever
}

// LoadScene reads a YAML scene file.
func LoadScene(path string) (*Scene, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	scene := &Scene{Restitution: 0.5}
	if err := yaml.Unmarshal(raw, scene); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	if err := scene.validate(); err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}
	return scene, nil
}

// DefaultScene splits entities between free movers, a smaller set of
// colliding spheres and short-lived debris.
func DefaultScene(entities int) *Scene {
	colliders := min(entities/10, 400)
	debris := entities / 10
	movers := entities - colliders - debris

	return &Scene{
		Gravity:     Vec3{Y: -9.81},
		Restitution: 0.5,
		Groups: []SpawnGroup{
			{
				Name:   "movers",
				Count:  movers,
				Min:    Vec3{X: -500, Y: 0, Z: -500},
				Max:    Vec3{X: 500, Y: 200, Z: 500},
				Jitter: 5,
				Mass:   1,
			},
			{
				Name:   "colliders",
				Count:  colliders,
				Min:    Vec3{X: -20, Y: 0, Z: -20},
				Max:    Vec3{X: 20, Y: 40, Z: 20},
				Jitter: 2,
				Radius: 1,
				Mass:   2,
			},
			{
				Name:     "debris",
				Count:    debris,
				Min:      Vec3{X: -50, Y: 10, Z: -50},
				Max:      Vec3{X: 50, Y: 60, Z: 50},
				Velocity: Vec3{Y: 5},
				Jitter:   10,
				Mass:     0.1,
				Lifetime: 2,
			},
		},
	}
}

func (s *Scene) validate() error {
	for i, g := range s.Groups {
		switch {
		case g.Count < 0:
			return fmt.Errorf("group %d (%s): negative count %d", i, g.Name, g.Count)
		case g.Min.X > g.Max.X || g.Min.Y > g.Max.Y || g.Min.Z > g.Max.Z:
			return fmt.Errorf("group %d (%s): min is not below max", i, g.Name)
		case !g.Static && g.Mass <= 0:
			return fmt.Errorf("group %d (%s): dynamic bodies need a positive mass", i, g.Name)
		case g.Radius < 0 || g.Lifetime < 0:
			return fmt.Errorf("group %d (%s): radius and lifetime must not be negative", i, g.Name)
		}
	}
	return nil
}

// Entities returns the number of bodies the scene spawns.
func (s *Scene) Entities() int {
	total := 0
	for _, g := range s.Groups {
		total += g.Count
	}
	return total
}

type sceneBody = struct {
	Position *Position
	Velocity *Velocity
	Body     *Body
	Group    *Group
	Collider *Collider `ecs:"optional"`
	Lifetime *Lifetime `ecs:"optional"`
}

func between(rng *rand.Rand, lo, hi float32) float32 {
	return lo + rng.Float32()*(hi-lo)
}

// body draws the components of one member of group index.
func (s *Scene) body(index int, rng *rand.Rand) sceneBody {
	g := &s.Groups[index]
	body := sceneBody{
		Position: &Position{Value: Vec3{
			X: between(rng, g.Min.X, g.Max.X),
			Y: between(rng, g.Min.Y, g.Max.Y),
			Z: between(rng, g.Min.Z, g.Max.Z),
		}},
		Velocity: &Velocity{Value: g.Velocity.Add(Vec3{
			X: between(rng, -g.Jitter, g.Jitter),
			Y: between(rng, -g.Jitter, g.Jitter),
			Z: between(rng, -g.Jitter, g.Jitter),
		})},
		Body:  &Body{Mass: g.Mass, Static: g.Static},
		Group: &Group{Index: index},
	}
	if g.Radius > 0 {
		body.Collider = &Collider{Radius: g.Radius}
	}
	if g.Lifetime > 0 {
		// Stagger expiry so debris does not churn in lockstep.
		body.Lifetime = &Lifetime{Remaining: between(rng, 0, g.Lifetime)}
	}
	return body
}

// Populate adds the scene's resources and spawns every group into w. It
// returns the number of entities spawned.
func (s *Scene) Populate(w *ecs.World, rng *rand.Rand) int {
	ecs.NewSingleton(w, Gravity{Value: s.Gravity})
	ecs.NewSingleton[Contacts](w)

	view := ecs.NewView[sceneBody](w)
	spawned := 0
	for i, g := range s.Groups {
		for range g.Count {
			view.Spawn(s.body(i, rng))
			spawned++
		}
	}
	return spawned
}

// spawnDeferred queues a new member of group index on cmds.
func (s *Scene) spawnDeferred(cmds *ecs.Commands, index int, rng *rand.Rand) ecs.Entity {
	body := s.body(index, rng)
	if body.Lifetime != nil {
		body.Lifetime.Remaining = s.Groups[index].Lifetime
	}

	e := cmds.Spawn()
	ecs.AddComponent(cmds, e, *body.Position)
	ecs.AddComponent(cmds, e, *body.Velocity)
	ecs.AddComponent(cmds, e, *body.Body)
	ecs.AddComponent(cmds, e, *body.Group)
	if body.Collider != nil {
		ecs.AddComponent(cmds, e, *body.Collider)
	}
	if body.Lifetime != nil {
		ecs.AddComponent(cmds, e, *body.Lifetime)
	}
	return e
}
