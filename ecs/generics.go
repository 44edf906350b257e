package ecs

import (
	"slices"

	"github.com/milk9111/platformkit/ecs/component"
)

// Components are stored by pointer; Get hands back the stored pointer so
// systems mutate in place.

func Add[T any](w *World, e Entity, handle component.ComponentHandle[T], value *T) error {
	if value == nil {
		return component.ErrNilComponent
	}
	return w.AddComponent(e, handle.Kind(), value)
}

func Remove[T any](w *World, e Entity, handle component.ComponentHandle[T]) bool {
	return w.RemoveComponent(e, handle.Kind())
}

func Has[T any](w *World, e Entity, handle component.ComponentHandle[T]) bool {
	return w.HasComponent(e, handle.Kind())
}

func Get[T any](w *World, e Entity, handle component.ComponentHandle[T]) (*T, bool) {
	value, ok := w.GetComponent(e, handle.Kind())
	if !ok {
		return nil, false
	}
	cast, ok := value.(*T)
	return cast, ok
}

// First returns the first entity carrying handle along with its component.
func First[T any](w *World, handle component.ComponentHandle[T]) (Entity, *T, bool) {
	e, ok := w.First(handle.Kind())
	if !ok {
		return 0, nil, false
	}
	v, ok := Get(w, e, handle)
	return e, v, ok
}

func CreateEntity(w *World) Entity { return w.CreateEntity() }

func DestroyEntity(w *World, e Entity) bool { return w.DestroyEntity(e) }

func IsAlive(w *World, e Entity) bool { return w.IsAlive(e) }

func Entities(w *World) []Entity { return w.Entities() }

func ForEach[A any](w *World, a component.ComponentHandle[A], fn func(Entity, *A)) {
	for _, e := range w.Query(a.Kind()) {
		va, ok := Get(w, e, a)
		if !ok {
			continue
		}
		fn(e, va)
	}
}

func ForEach2[A, B any](w *World, a component.ComponentHandle[A], b component.ComponentHandle[B], fn func(Entity, *A, *B)) {
	for _, e := range w.Query(a.Kind(), b.Kind()) {
		va, okA := Get(w, e, a)
		vb, okB := Get(w, e, b)
		if !okA || !okB {
			continue
		}
		fn(e, va, vb)
	}
}

func ForEach3[A, B, C any](w *World, a component.ComponentHandle[A], b component.ComponentHandle[B], c component.ComponentHandle[C], fn func(Entity, *A, *B, *C)) {
	for _, e := range w.Query(a.Kind(), b.Kind(), c.Kind()) {
		va, okA := Get(w, e, a)
		vb, okB := Get(w, e, b)
		vc, okC := Get(w, e, c)
		if !okA || !okB || !okC {
			continue
		}
		fn(e, va, vb, vc)
	}
}

func sortEntities(ents []Entity) {
	slices.SortFunc(ents, func(a, b Entity) int {
		return int(a.id()) - int(b.id())
	})
}
