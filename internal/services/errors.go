// Package services holds the business rules of the LevelUp API: user
// registration and profiles, squads, notifications, and the read models for
// stats, achievements, leaderboards, challenges and activity.
//
// Services return *errs.Error values so handlers can map failures to HTTP
// statuses in one place. The predictable business failures are declared
// below and can be matched with errors.Is.
package services

import "github.com/tbourn/levelup-backend/internal/errs"

// User errors.
var (
	// ErrNotRegistered is returned when the caller has no user profile yet.
	ErrNotRegistered = &errs.Error{Kind: errs.KindNotFound, Code: "User.NotRegistered", Description: "The caller has not registered a profile."}

	// ErrLeetCodeTaken is returned when another user already linked the
	// LeetCode account.
	ErrLeetCodeTaken = &errs.Error{Kind: errs.KindConflict, Code: "User.LeetCodeTaken", Description: "The LeetCode username is already linked to another user."}
)

// Squad errors.
var (
	ErrSquadNameTaken = &errs.Error{Kind: errs.KindConflict, Code: "Squad.NameTaken", Description: "A squad with this name already exists."}

	// ErrAlreadyInSquad is returned when the user already belongs to a squad.
	ErrAlreadyInSquad = &errs.Error{Kind: errs.KindConflict, Code: "Squad.AlreadyInSquad", Description: "The user already belongs to a squad."}

	ErrAlreadyMember = &errs.Error{Kind: errs.KindConflict, Code: "Squad.AlreadyMember", Description: "The user is already a member of this squad."}

	ErrSquadFull = &errs.Error{Kind: errs.KindConflict, Code: "Squad.Full", Description: "The squad has no free slots."}

	// ErrNotRecruiting is returned when the squad is closed to new members.
	ErrNotRecruiting = &errs.Error{Kind: errs.KindConflict, Code: "Squad.NotRecruiting", Description: "The squad is not recruiting."}
)

// Access errors.
var (
	ErrAdminOnly = errs.Forbidden("This action requires the Admin role.")
)
