package models

// DiscrepancyType classifies a detected difference
type DiscrepancyType string

const (
	DiscrepancyMissingInP6   DiscrepancyType = "MissingInP6"
	DiscrepancyMissingInEBS  DiscrepancyType = "MissingInEbs"
	DiscrepancyValueMismatch DiscrepancyType = "ValueMismatch"
)

// DiscrepancyStatus is the lifecycle state of a DiscrepancyRecord
type DiscrepancyStatus string

const (
	StatusUnresolved DiscrepancyStatus = "Unresolved"
	StatusResolved   DiscrepancyStatus = "Resolved"
	StatusApplied    DiscrepancyStatus = "Applied"
)

// Resolution is the policy chosen for one field discrepancy
type Resolution string

const (
	ResolutionPending Resolution = "Pending"
	ResolutionUseA    Resolution = "UseA"
	ResolutionUseB    Resolution = "UseB"
	ResolutionIgnore  Resolution = "Ignore"
	ResolutionCustom  Resolution = "Custom"
)

// Valid reports whether r is a resolution a caller may apply
func (r Resolution) Valid() bool {
	switch r {
	case ResolutionUseA, ResolutionUseB, ResolutionIgnore, ResolutionCustom:
		return true
	}
	return false
}

// FieldDiscrepancy is one field-level difference. FieldA/FieldB are the field
// names in P6 and EBS; either may be empty when the field has no counterpart.
type FieldDiscrepancy struct {
	FieldName   string     `json:"field_name"`
	FieldA      string     `json:"field_a,omitempty"`
	FieldB      string     `json:"field_b,omitempty"`
	ValueA      Value      `json:"value_a"`
	ValueB      Value      `json:"value_b"`
	Resolution  Resolution `json:"resolution"`
	CustomValue *Value     `json:"custom_value,omitempty"`
	Selected    bool       `json:"selected"`
}

// DiscrepancyRecord groups the field discrepancies found for one entity
type DiscrepancyRecord struct {
	EntityType         string              `json:"entity_type"`
	EntityID           string              `json:"entity_id"`
	EntityIDB          string              `json:"entity_id_b,omitempty"`
	EntityName         string              `json:"entity_name"`
	DiscrepancyType    DiscrepancyType     `json:"discrepancy_type"`
	Status             DiscrepancyStatus   `json:"status"`
	FieldDiscrepancies []*FieldDiscrepancy `json:"field_discrepancies"`
	Error              string              `json:"error,omitempty"`
}

// Field returns the field discrepancy with the given name
func (r *DiscrepancyRecord) Field(name string) *FieldDiscrepancy {
	for _, fd := range r.FieldDiscrepancies {
		if fd.FieldName == name {
			return fd
		}
	}
	return nil
}

// AllResolved reports whether no field is still Pending
func (r *DiscrepancyRecord) AllResolved() bool {
	for _, fd := range r.FieldDiscrepancies {
		if fd.Resolution == ResolutionPending || fd.Resolution == "" {
			return false
		}
	}
	return true
}

// DiscrepancySummary counts records by type
type DiscrepancySummary struct {
	MissingInP6   int `json:"missing_in_p6"`
	MissingInEBS  int `json:"missing_in_ebs"`
	ValueMismatch int `json:"value_mismatch"`
}

// Summarize counts discrepancy records by type
func Summarize(records []*DiscrepancyRecord) DiscrepancySummary {
	var s DiscrepancySummary
	for _, r := range records {
		switch r.DiscrepancyType {
		case DiscrepancyMissingInP6:
			s.MissingInP6++
		case DiscrepancyMissingInEBS:
			s.MissingInEBS++
		case DiscrepancyValueMismatch:
			s.ValueMismatch++
		}
	}
	return s
}
