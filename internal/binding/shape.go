package binding

import "fmt"

// Shape is the reason a declaration was rejected during extraction.
type Shape int

const (
	ShapeNoRole Shape = iota
	ShapeMultipleRoles
	ShapeUnknownRole
	ShapeInvalidType
	ShapeUnknownContribution
	ShapeBindsArity
	ShapeMultibindsShape
	ShapeElementsIntoSetReturn
	ShapeOptionalOfShape
	ShapeProducesScoped
	ShapeProducesOutsideProducerModule
	ShapeMapKeyMissing
	ShapeMapKeyAmbiguous
	ShapeMapKeyUnrecognized
	ShapeMapKeyNotAllowed
	ShapeUnknownModule
	ShapeUnknownSubcomponent
	ShapeNotSubcomponent
	ShapeSubcomponentCycle
	ShapeInvalidEntryPoint
)

var shapeNames = [...]string{
	ShapeNoRole:                        "no_role",
	ShapeMultipleRoles:                 "multiple_roles",
	ShapeUnknownRole:                   "unknown_role",
	ShapeInvalidType:                   "invalid_type",
	ShapeUnknownContribution:           "unknown_contribution",
	ShapeBindsArity:                    "binds_arity",
	ShapeMultibindsShape:               "multibinds_shape",
	ShapeElementsIntoSetReturn:         "elements_into_set_return",
	ShapeOptionalOfShape:               "optional_of_shape",
	ShapeProducesScoped:                "produces_scoped",
	ShapeProducesOutsideProducerModule: "produces_outside_producer_module",
	ShapeMapKeyMissing:                 "map_key_missing",
	ShapeMapKeyAmbiguous:               "map_key_ambiguous",
	ShapeMapKeyUnrecognized:            "map_key_unrecognized",
	ShapeMapKeyNotAllowed:              "map_key_not_allowed",
	ShapeUnknownModule:                 "unknown_module",
	ShapeUnknownSubcomponent:           "unknown_subcomponent",
	ShapeNotSubcomponent:               "not_subcomponent",
	ShapeSubcomponentCycle:             "subcomponent_cycle",
	ShapeInvalidEntryPoint:             "invalid_entry_point",
}

func (s Shape) String() string {
	if int(s) < len(shapeNames) {
		return shapeNames[s]
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

// IsMapKey reports whether the rejection concerns a map-key annotation.
func (s Shape) IsMapKey() bool {
	switch s {
	case ShapeMapKeyMissing, ShapeMapKeyAmbiguous, ShapeMapKeyUnrecognized, ShapeMapKeyNotAllowed:
		return true
	}
	return false
}

// Rejected is a declaration that was excluded from the graph.
type Rejected struct {
	Shape   Shape
	Module  string
	Element string
	Detail  string
}

func (r Rejected) String() string {
	return fmt.Sprintf("%s: %s", r.Element, r.Detail)
}
