package source

import (
	"github.com/tpcgrp/p6ebs-sync/internal/mapping"
	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

// DefaultQueries returns the read and write statements for the built-in entity
// types. Column aliases match the field names of the default mapping tables.
func DefaultQueries(system models.System) map[string]Query {
	if system == models.SystemP6 {
		return map[string]Query{
			mapping.EntityProject: {
				Select: "SELECT p.proj_id, p.proj_name, p.proj_short_name, p.status_code, " +
					"p.plan_start_date, p.plan_end_date FROM project p",
				Table:     "project",
				IDColumn:  "proj_id",
				NameField: "proj_name",
				Writable: map[string]string{
					"proj_name":       "proj_name",
					"proj_short_name": "proj_short_name",
					"status_code":     "status_code",
					"plan_start_date": "plan_start_date",
					"plan_end_date":   "plan_end_date",
				},
			},
			mapping.EntityActivity: p6Activities(),
			mapping.EntityTask:     p6Activities(),
			mapping.EntityResource: {
				Select:    "SELECT r.rsrc_id, r.rsrc_name, r.email_addr FROM rsrc r",
				Table:     "rsrc",
				IDColumn:  "rsrc_id",
				NameField: "rsrc_name",
				Writable: map[string]string{
					"rsrc_name":  "rsrc_name",
					"email_addr": "email_addr",
				},
			},
			mapping.EntityWBS: {
				Select:    "SELECT w.wbs_id, w.wbs_name FROM projwbs w",
				Table:     "projwbs",
				IDColumn:  "wbs_id",
				NameField: "wbs_name",
				Writable:  map[string]string{"wbs_name": "wbs_name"},
			},
		}
	}

	return map[string]Query{
		mapping.EntityProject: {
			Select: "SELECT p.project_id, p.name AS project_name, p.segment1, p.project_status_code, " +
				"p.start_date, p.completion_date FROM pa_projects_all p",
			Table:     "pa_projects_all",
			IDColumn:  "project_id",
			NameField: "project_name",
			Writable: map[string]string{
				"project_name":        "name",
				"segment1":            "segment1",
				"project_status_code": "project_status_code",
				"start_date":          "start_date",
				"completion_date":     "completion_date",
			},
		},
		mapping.EntityActivity: ebsTasks(),
		mapping.EntityTask:     ebsTasks(),
		mapping.EntityResource: {
			Select:    "SELECT p.person_id, p.full_name, p.email_address FROM per_all_people_f p",
			Table:     "per_all_people_f",
			IDColumn:  "person_id",
			NameField: "full_name",
			Writable: map[string]string{
				"full_name":     "full_name",
				"email_address": "email_address",
			},
		},
		mapping.EntityWBS: {
			Select:    "SELECT t.task_id AS wbs_id, t.task_name AS wbs_name FROM pa_tasks t WHERE t.parent_task_id IS NULL",
			Table:     "pa_tasks",
			IDColumn:  "task_id",
			IDField:   "wbs_id",
			NameField: "wbs_name",
			Writable:  map[string]string{"wbs_name": "task_name"},
		},
	}
}

func p6Activities() Query {
	return Query{
		Select: "SELECT a.task_id AS activity_id, a.task_name AS activity_name, a.task_code AS activity_code, " +
			"a.target_start_date AS start_date, a.target_end_date AS finish_date, a.status_code, " +
			"a.act_start_date, a.act_end_date, a.target_drtn_hr_cnt AS duration, a.proj_id FROM task a",
		Table:     "task",
		IDColumn:  "task_id",
		IDField:   "activity_id",
		NameField: "activity_name",
		Writable: map[string]string{
			"activity_name":  "task_name",
			"start_date":     "target_start_date",
			"finish_date":    "target_end_date",
			"status_code":    "status_code",
			"act_start_date": "act_start_date",
			"act_end_date":   "act_end_date",
		},
	}
}

func ebsTasks() Query {
	return Query{
		Select: "SELECT t.task_id, t.task_name, t.task_number, t.start_date, t.completion_date, " +
			"t.task_status_code, t.actual_start_date, t.actual_finish_date, t.planned_duration, t.project_id " +
			"FROM pa_tasks t",
		Table:     "pa_tasks",
		IDColumn:  "task_id",
		NameField: "task_name",
		Writable: map[string]string{
			"task_name":          "task_name",
			"start_date":         "start_date",
			"completion_date":    "completion_date",
			"task_status_code":   "task_status_code",
			"actual_start_date":  "actual_start_date",
			"actual_finish_date": "actual_finish_date",
			"planned_duration":   "planned_duration",
		},
	}
}
