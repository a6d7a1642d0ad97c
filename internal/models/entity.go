package models

// System identifies one of the two record systems being reconciled
type System string

const (
	SystemP6  System = "P6"
	SystemEBS System = "EBS"
)

// Other returns the opposite system
func (s System) Other() System {
	if s == SystemP6 {
		return SystemEBS
	}
	return SystemP6
}

// Valid reports whether s is one of the known systems
func (s System) Valid() bool {
	return s == SystemP6 || s == SystemEBS
}

// Direction is the configured flow of data for an integration type.
// A is P6 and B is EBS throughout.
type Direction string

const (
	DirectionP6ToEBS       Direction = "P6_TO_EBS"
	DirectionEBSToP6       Direction = "EBS_TO_P6"
	DirectionBidirectional Direction = "BIDIRECTIONAL"
)

// Valid reports whether d is a known direction
func (d Direction) Valid() bool {
	switch d {
	case DirectionP6ToEBS, DirectionEBSToP6, DirectionBidirectional:
		return true
	}
	return false
}

// EntityRecord is one record from either system. ID is only unique within its own system.
type EntityRecord struct {
	ID     string           `json:"id"`
	Name   string           `json:"name"`
	Fields map[string]Value `json:"fields"`
}

// NewEntityRecord builds a record from loosely typed field values
func NewEntityRecord(id, name string, fields map[string]interface{}) EntityRecord {
	rec := EntityRecord{ID: id, Name: name, Fields: make(map[string]Value, len(fields))}
	for k, v := range fields {
		rec.Fields[k] = FromInterface(v)
	}
	return rec
}

// Get returns a field value; absent and null fields both report ok=false
func (r EntityRecord) Get(field string) (Value, bool) {
	v, ok := r.Fields[field]
	if !ok || v.IsNull() {
		return Null(), false
	}
	return v, true
}

// Clone returns a deep copy of the record's field map
func (r EntityRecord) Clone() EntityRecord {
	out := EntityRecord{ID: r.ID, Name: r.Name, Fields: make(map[string]Value, len(r.Fields))}
	for k, v := range r.Fields {
		out.Fields[k] = v
	}
	return out
}
