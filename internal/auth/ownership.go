package auth

import "github.com/sakif/attendance-tracker/internal/model"

// OwnershipPolicy decides whether mutations must be made by the record owner.
type OwnershipPolicy int

const (
	// OwnershipEnforced rejects mutations of records owned by someone else.
	OwnershipEnforced OwnershipPolicy = iota
	// OwnershipNotEnforced lets any authenticated caller mutate any record
	// by id.
	OwnershipNotEnforced
)

func (p OwnershipPolicy) String() string {
	if p == OwnershipNotEnforced {
		return "not-enforced"
	}
	return "enforced"
}

// BelongsTo reports whether the record is owned by the given identity.
func BelongsTo(record *model.Record, id model.Identity) bool {
	return record != nil && id.UserID != "" && record.UserID == id.UserID
}

// MayMutate applies the policy to a record about to be changed or removed.
func (p OwnershipPolicy) MayMutate(record *model.Record, id model.Identity) bool {
	if p == OwnershipNotEnforced {
		return true
	}
	return BelongsTo(record, id)
}
