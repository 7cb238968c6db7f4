package extractor

import (
	"fmt"
	"net/http"
	"reflect"

	"github.com/quiverhttp/quiver/core/state"
)

// State returns an extractor that resolves fields tagged `state:"inject"`
// from the router's shared state container, matched by the field's type.
// A missing container or unregistered type is a deployment misconfiguration
// and fails with an internal error, never a client error.
func State() Extractor {
	return func(r *http.Request, v any) error {
		rv, err := targetStruct(v)
		if err != nil {
			return err
		}
		rt := rv.Type()

		var container *state.Container
		for i := range rv.NumField() {
			field := rv.Field(i)
			sf := rt.Field(i)

			tag := sf.Tag.Get("state")
			if tag == "" || tag == "-" || !field.CanSet() {
				continue
			}

			if container == nil {
				c, ok := state.FromRequest(r)
				if !ok {
					return newError(http.StatusInternalServerError, "state_unavailable", sf.Name,
						fmt.Errorf("no state container attached to request"))
				}
				container = c
			}

			val, ok := container.Resolve(sf.Type)
			if !ok {
				return newError(http.StatusInternalServerError, "state_not_registered", sf.Name,
					fmt.Errorf("%w: %s", state.ErrNotRegistered, sf.Type))
			}
			field.Set(reflect.ValueOf(val))
		}

		return nil
	}
}
