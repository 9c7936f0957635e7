package value

import "github.com/google/uuid"

// HostObject opaquely boxes a Go value that has no natural Scheme
// representation (spec.md §6's embedding boundary), so it can travel
// through Scheme code unchanged until the host unboxes it again via
// Engine.FromScheme. ID gives it a stable identity distinct from the
// wrapped Go value's own equality, matching google/uuid's role
// elsewhere in this module for tagging opaque identities.
type HostObject struct {
	ID  uuid.UUID
	Obj any
}

// WrapHostObject boxes obj under a freshly minted identity.
func WrapHostObject(obj any) Value {
	return Obj(KindHostObject, &HostObject{ID: uuid.New(), Obj: obj})
}

func AsHostObject(v Value) *HostObject {
	h, _ := v.Payload().(*HostObject)
	return h
}
