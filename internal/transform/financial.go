package transform

import (
	"github.com/sirupsen/logrus"

	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

// Financial field pairs per direction: source field -> target field
var (
	FinancialP6ToEBS = []fieldMove{
		{from: "planned_cost", to: "budget_amount"},
		{from: "actual_cost", to: "actual_cost"},
		{from: "remaining_cost", to: "committed_amount"},
	}
	FinancialEBSToP6 = []fieldMove{
		{from: "budgeted_amount", to: "target_cost"},
		{from: "actual_cost", to: "act_cost"},
		{from: "committed_amount", to: "remain_cost"},
	}
)

type fieldMove struct {
	from, to string
}

// MergePolicy decides which system wins when a BIDIRECTIONAL merge sees the same field on both sides
type MergePolicy struct {
	Priority models.System
}

// DefaultMergePolicy lets EBS win and fills gaps from P6
func DefaultMergePolicy() MergePolicy {
	return MergePolicy{Priority: models.SystemEBS}
}

// TransformFinancial produces one financial record from the P6 and EBS records of an entity.
// Either record may be nil. Amounts are decimals rounded to 2 places.
func (s *Service) TransformFinancial(p6, ebs *models.EntityRecord, direction models.Direction, policy MergePolicy) models.EntityRecord {
	s.logger.WithField("direction", direction).Debug("Transforming financial data")

	out := models.EntityRecord{Fields: make(map[string]models.Value)}
	switch direction {
	case models.DirectionP6ToEBS:
		if p6 != nil {
			out.ID, out.Name = p6.ID, p6.Name
			moveAmounts(out.Fields, *p6, FinancialP6ToEBS)
		}
	case models.DirectionEBSToP6:
		if ebs != nil {
			out.ID, out.Name = ebs.ID, ebs.Name
			moveAmounts(out.Fields, *ebs, FinancialEBSToP6)
		}
	case models.DirectionBidirectional:
		out = merge(p6, ebs, policy)
	default:
		s.logger.WithFields(logrus.Fields{"direction": direction}).Warn("Unknown transformation direction")
		return out
	}
	return s.apply(EntityFinancial, out.ID, out)
}

func moveAmounts(dst map[string]models.Value, src models.EntityRecord, moves []fieldMove) {
	for _, m := range moves {
		if v, ok := src.Fields[m.from]; ok {
			dst[m.to] = models.Number(ToDecimal(v))
		}
	}
}

func merge(p6, ebs *models.EntityRecord, policy MergePolicy) models.EntityRecord {
	first, second := ebs, p6
	if policy.Priority == models.SystemP6 {
		first, second = p6, ebs
	}

	out := models.EntityRecord{Fields: make(map[string]models.Value)}
	for _, rec := range []*models.EntityRecord{first, second} {
		if rec == nil {
			continue
		}
		if out.ID == "" {
			out.ID, out.Name = rec.ID, rec.Name
		}
		for k, v := range rec.Fields {
			if existing, ok := out.Fields[k]; ok && !existing.IsNull() {
				continue
			}
			out.Fields[k] = v
		}
	}
	return out
}
