package access

import (
	"context"
	"fmt"
	"time"

	"trackadmin/internal/apperr"
	"trackadmin/internal/models"
)

// GenericDenialMessage is returned when a deny rule carries no reason text.
// Rule identifiers are never surfaced to callers.
const GenericDenialMessage = "not authorized to access this device"

// Decision is the outcome of a device access check. Denial is a value, not
// an error.
type Decision struct {
	HasAccess         bool
	RestrictionReason string
}

// Store supplies the rows the resolver evaluates.
type Store interface {
	TechnicianByID(ctx context.Context, id int64) (*models.Technician, error)
	// RestrictionsByTechnician returns only rows with Status = active.
	RestrictionsByTechnician(ctx context.Context, technicianID int64) ([]models.ImeiRestriction, error)
	TagItemsByTag(ctx context.Context, tagID int64) ([]models.TagItem, error)
}

// Resolver decides whether a technician may view or verify a device, based
// on the technician's restriction rows and tag membership. It is a pure
// decision function over store reads: no writes, no caching. Audit logging
// of denials is the caller's job.
type Resolver struct {
	Store Store
}

// Check evaluates the technician's active restrictions against the target
// device at time now. With no applicable rule the decision is allow:
// absence of restrictions means unrestricted access.
func (r Resolver) Check(ctx context.Context, technicianID, deviceID int64, now time.Time) (Decision, error) {
	tech, err := r.Store.TechnicianByID(ctx, technicianID)
	if err != nil {
		return Decision{}, err
	}
	if tech == nil || tech.Status != models.TechnicianActive {
		return Decision{}, fmt.Errorf("technician %d: %w", technicianID, apperr.ErrNotFound)
	}

	rules, err := r.Store.RestrictionsByTechnician(ctx, technicianID)
	if err != nil {
		return Decision{}, err
	}

	var selected *candidate
	for i := range rules {
		rule := &rules[i]
		if !withinValidity(rule, now) {
			continue
		}
		cand, err := r.classify(ctx, rule, deviceID)
		if err != nil {
			return Decision{}, err
		}
		if cand == nil {
			continue
		}
		if selected == nil || cand.beats(selected) {
			selected = cand
		}
	}

	if selected == nil {
		return Decision{HasAccess: true}, nil
	}
	if selected.rule.AccessType == models.AccessDeny {
		reason := selected.rule.Reason
		if reason == "" {
			reason = GenericDenialMessage
		}
		return Decision{HasAccess: false, RestrictionReason: reason}, nil
	}
	return Decision{HasAccess: true}, nil
}

// candidate is an applicable rule together with how it matched the device.
type candidate struct {
	rule        *models.ImeiRestriction
	deviceScope bool
}

// classify reports whether the rule targets the device, either directly or
// through tag membership. Returns nil when the rule does not apply.
func (r Resolver) classify(ctx context.Context, rule *models.ImeiRestriction, deviceID int64) (*candidate, error) {
	switch {
	case rule.DeviceID != nil:
		if *rule.DeviceID == deviceID {
			return &candidate{rule: rule, deviceScope: true}, nil
		}
	case rule.TagID != nil:
		items, err := r.Store.TagItemsByTag(ctx, *rule.TagID)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			if it.EntityType == models.TagEntityDevice && it.EntityID == deviceID {
				return &candidate{rule: rule, deviceScope: false}, nil
			}
		}
	}
	return nil, nil
}

// withinValidity checks the rule's validity window. Permanent rules always
// apply; otherwise now must fall within [ValidFrom, ValidUntil], with an
// absent bound unbounded on that side.
func withinValidity(rule *models.ImeiRestriction, now time.Time) bool {
	if rule.IsPermanent {
		return true
	}
	if rule.ValidFrom != nil && now.Before(*rule.ValidFrom) {
		return false
	}
	if rule.ValidUntil != nil && now.After(*rule.ValidUntil) {
		return false
	}
	return true
}

// beats orders candidates: highest priority wins, ties prefer device-scoped
// rules over tag-scoped, then the most recently created rule.
func (c *candidate) beats(other *candidate) bool {
	if c.rule.Priority != other.rule.Priority {
		return c.rule.Priority > other.rule.Priority
	}
	if c.deviceScope != other.deviceScope {
		return c.deviceScope
	}
	return c.rule.CreatedAt.After(other.rule.CreatedAt)
}
