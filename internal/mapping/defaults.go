package mapping

// Entity types with built-in field tables
const (
	EntityProject   = "project"
	EntityActivity  = "activity"
	EntityTask      = "task"
	EntityResource  = "resource"
	EntityWBS       = "wbs"
	EntityTimesheet = "timesheet"
)

// DefaultBindings returns the built-in P6 <-> EBS field tables
func DefaultBindings() []Binding {
	return []Binding{
		{
			EntityType: EntityProject,
			Fields: []FieldPair{
				{P6: "proj_id", EBS: "project_id"},
				{P6: "proj_name", EBS: "project_name"},
				{P6: "proj_short_name", EBS: "segment1"},
				{P6: "status_code", EBS: "project_status_code"},
				{P6: "plan_start_date", EBS: "start_date"},
				{P6: "plan_end_date", EBS: "completion_date"},
			},
			IDFieldP6:      "proj_id",
			IDFieldEBS:     "project_id",
			NameFieldP6:    "proj_name",
			NameFieldEBS:   "project_name",
			BusinessKeyP6:  "proj_short_name",
			BusinessKeyEBS: "segment1",
		},
		{
			EntityType: EntityActivity,
			Fields: []FieldPair{
				{P6: "activity_id", EBS: "task_id"},
				{P6: "activity_name", EBS: "task_name"},
				{P6: "activity_code", EBS: "task_number"},
				{P6: "start_date", EBS: "start_date"},
				{P6: "finish_date", EBS: "completion_date"},
				{P6: "status_code", EBS: "task_status_code"},
			},
			IDFieldP6:      "activity_id",
			IDFieldEBS:     "task_id",
			NameFieldP6:    "activity_name",
			NameFieldEBS:   "task_name",
			BusinessKeyP6:  "activity_code",
			BusinessKeyEBS: "task_number",
		},
		{
			EntityType: EntityTask,
			Fields: []FieldPair{
				{P6: "activity_id", EBS: "task_id"},
				{P6: "activity_name", EBS: "task_name"},
				{P6: "activity_code", EBS: "task_number"},
				{P6: "start_date", EBS: "start_date"},
				{P6: "finish_date", EBS: "completion_date"},
				{P6: "status_code", EBS: "task_status_code"},
				{P6: "act_start_date", EBS: "actual_start_date"},
				{P6: "act_end_date", EBS: "actual_finish_date"},
				{P6: "duration", EBS: "planned_duration"},
				{P6: "proj_id", EBS: "project_id"},
			},
			IDFieldP6:      "activity_id",
			IDFieldEBS:     "task_id",
			NameFieldP6:    "activity_name",
			NameFieldEBS:   "task_name",
			BusinessKeyP6:  "activity_code",
			BusinessKeyEBS: "task_number",
		},
		{
			EntityType: EntityResource,
			Fields: []FieldPair{
				{P6: "rsrc_id", EBS: "person_id"},
				{P6: "rsrc_name", EBS: "full_name"},
				{P6: "email_addr", EBS: "email_address"},
			},
			IDFieldP6:      "rsrc_id",
			IDFieldEBS:     "person_id",
			NameFieldP6:    "rsrc_name",
			NameFieldEBS:   "full_name",
			BusinessKeyP6:  "email_addr",
			BusinessKeyEBS: "email_address",
		},
		{
			EntityType: EntityWBS,
			Fields: []FieldPair{
				{P6: "wbs_id", EBS: "wbs_id"},
				{P6: "wbs_name", EBS: "wbs_name"},
			},
			IDFieldP6:    "wbs_id",
			IDFieldEBS:   "wbs_id",
			NameFieldP6:  "wbs_name",
			NameFieldEBS: "wbs_name",
		},
		{
			// P6 timesheet lines exported as EBS timecard entries; the P6 id is
			// kept as the source reference of the timecard
			EntityType: EntityTimesheet,
			Fields: []FieldPair{
				{P6: "timesheet_id", EBS: "orig_transaction_reference"},
				{P6: "activity_id", EBS: "task_id"},
				{P6: "rsrc_id", EBS: "person_id"},
				{P6: "work_date", EBS: "expenditure_item_date"},
				{P6: "hours", EBS: "quantity"},
			},
			IDFieldP6:    "timesheet_id",
			IDFieldEBS:   "timecard_id",
			NameFieldP6:  "timesheet_id",
			NameFieldEBS: "orig_transaction_reference",
		},
	}
}
