package container

import (
	"fmt"
	"reflect"
	"sync"
)

// Small DI container using constructor injection. main.go registers
// constructors and ready-made values, then resolves the HTTP router; every
// dependency is built once.
//  - Provide constructor functions returning (T) or (T, error)
//  - Supply already-built values
//  - Resolve by type, Invoke to call functions with deps

type Container struct {
	mu        sync.Mutex
	prov      map[reflect.Type]reflect.Value
	instances map[reflect.Type]reflect.Value
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func New() *Container {
	return &Container{
		prov:      make(map[reflect.Type]reflect.Value),
		instances: make(map[reflect.Type]reflect.Value),
	}
}

// Provide registers a constructor. Its parameters are resolved from the
// container when the provided type is first requested.
func (c *Container) Provide(constructor interface{}) error {
	v := reflect.ValueOf(constructor)
	if v.Kind() != reflect.Func {
		return fmt.Errorf("container: constructor must be a function")
	}
	ft := v.Type()
	if ft.NumOut() == 0 || ft.NumOut() > 2 {
		return fmt.Errorf("container: constructor must return (T) or (T, error)")
	}
	if ft.NumOut() == 2 && ft.Out(1) != errorType {
		return fmt.Errorf("container: second return value must be error")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	out := ft.Out(0)
	if c.registered(out) {
		return fmt.Errorf("container: provider already exists for %v", out)
	}
	c.prov[out] = v
	return nil
}

// Supply registers an existing value under its dynamic type.
func (c *Container) Supply(value interface{}) error {
	if value == nil {
		return fmt.Errorf("container: cannot supply nil")
	}
	v := reflect.ValueOf(value)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registered(v.Type()) {
		return fmt.Errorf("container: provider already exists for %v", v.Type())
	}
	c.instances[v.Type()] = v
	return nil
}

// SupplyAs registers value under the interface type pointed to by iface,
// e.g. SupplyAs((*Geocoder)(nil), g).
func (c *Container) SupplyAs(iface interface{}, value interface{}) error {
	t := reflect.TypeOf(iface)
	if t == nil || t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Interface {
		return fmt.Errorf("container: SupplyAs needs a pointer to an interface")
	}
	t = t.Elem()
	v := reflect.New(t).Elem()
	if value != nil {
		vv := reflect.ValueOf(value)
		if !vv.Type().Implements(t) {
			return fmt.Errorf("container: %v does not implement %v", vv.Type(), t)
		}
		v.Set(vv)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registered(t) {
		return fmt.Errorf("container: provider already exists for %v", t)
	}
	c.instances[t] = v
	return nil
}

func (c *Container) registered(t reflect.Type) bool {
	_, p := c.prov[t]
	_, i := c.instances[t]
	return p || i
}

// Resolve populates the given pointer with an instance of the requested type.
// Example: var db *database.DB; c.Resolve(&db)
func (c *Container) Resolve(target interface{}) error {
	ptr := reflect.ValueOf(target)
	if ptr.Kind() != reflect.Ptr || ptr.IsNil() {
		return fmt.Errorf("container: target must be a non-nil pointer")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	val, err := c.get(ptr.Elem().Type(), make(map[reflect.Type]bool))
	if err != nil {
		return err
	}
	ptr.Elem().Set(val)
	return nil
}

// Get is the generic form of Resolve.
func Get[T any](c *Container) (T, error) {
	var out T
	err := c.Resolve(&out)
	return out, err
}

// Invoke calls fn, resolving its parameters from the container. A trailing
// error result is returned.
func (c *Container) Invoke(fn interface{}) error {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return fmt.Errorf("container: Invoke requires a function")
	}
	ft := v.Type()
	args := make([]reflect.Value, ft.NumIn())

	c.mu.Lock()
	for i := range args {
		val, err := c.get(ft.In(i), make(map[reflect.Type]bool))
		if err != nil {
			c.mu.Unlock()
			return err
		}
		args[i] = val
	}
	c.mu.Unlock()

	outs := v.Call(args)
	if n := len(outs); n > 0 && outs[n-1].Type() == errorType && !outs[n-1].IsNil() {
		return outs[n-1].Interface().(error)
	}
	return nil
}

// get must be called with c.mu held.
func (c *Container) get(t reflect.Type, building map[reflect.Type]bool) (reflect.Value, error) {
	if v, ok := c.instances[t]; ok {
		return v, nil
	}
	fn, ok := c.prov[t]
	if !ok && t.Kind() == reflect.Interface {
		for pt, p := range c.prov {
			if pt.Implements(t) {
				fn, ok = p, true
				break
			}
		}
		if !ok {
			for it, inst := range c.instances {
				if it.Implements(t) {
					return inst, nil
				}
			}
		}
	}
	if !ok {
		return reflect.Value{}, fmt.Errorf("container: no provider for %v", t)
	}

	if building[t] {
		return reflect.Value{}, fmt.Errorf("container: cyclic dependency for %v", t)
	}
	building[t] = true
	defer delete(building, t)

	ft := fn.Type()
	args := make([]reflect.Value, ft.NumIn())
	for i := range args {
		dep, err := c.get(ft.In(i), building)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("container: building %v: %w", t, err)
		}
		args[i] = dep
	}

	outs := fn.Call(args)
	if len(outs) == 2 && !outs[1].IsNil() {
		return reflect.Value{}, outs[1].Interface().(error)
	}
	res := outs[0]
	c.instances[t] = res
	if out := ft.Out(0); out != t {
		c.instances[out] = res
	}
	return res, nil
}
