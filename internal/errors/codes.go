// Package errors defines the failure kinds a party operation can end in and
// the single user-facing message and transport status for each of them.
package errors

import "net/http"

// Kind is a machine-readable failure code.
type Kind string

const (
	// Membership rules
	KindAlreadyInParty       Kind = "already_in_party"
	KindNotInParty           Kind = "not_in_party"
	KindNotOwner             Kind = "not_owner"
	KindAlreadyMember        Kind = "already_member"
	KindNotAMember           Kind = "not_a_member"
	KindCannotKickSelf       Kind = "cannot_kick_self"
	KindPartyFull            Kind = "party_full"
	KindTargetInAnotherParty Kind = "target_in_another_party"

	// Input
	KindNameTooLong    Kind = "name_too_long"
	KindTargetNotFound Kind = "target_not_found"
	KindInvalidRequest Kind = "invalid_request"

	// Access
	KindPermissionDenied Kind = "permission_denied"

	// Backend
	KindStorageUnavailable Kind = "storage_unavailable"
)

var userMessages = map[Kind]string{
	KindAlreadyInParty:       "You are already in a party. Leave first.",
	KindNotInParty:           "You are not in a party. Create one first.",
	KindNotOwner:             "Only the party owner can do that.",
	KindAlreadyMember:        "Player is already in your party.",
	KindNotAMember:           "Player is not in your party.",
	KindCannotKickSelf:       "You cannot kick yourself. Leave to disband the party.",
	KindPartyFull:            "Your party is full.",
	KindTargetInAnotherParty: "Player is already in another party.",
	KindNameTooLong:          "Party name is too long.",
	KindTargetNotFound:       "Player not found or not online.",
	KindInvalidRequest:       "Invalid request.",
	KindPermissionDenied:     "You do not have permission to look up parties.",
	KindStorageUnavailable:   "Party storage is unavailable. Try again later.",
}

// UserMessage returns the human-readable message shown to players.
func (k Kind) UserMessage() string {
	if msg, ok := userMessages[k]; ok {
		return msg
	}
	return userMessages[KindStorageUnavailable]
}

// HTTPStatus maps a kind to the status code the HTTP front end answers with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindAlreadyInParty,
		KindAlreadyMember,
		KindPartyFull,
		KindTargetInAnotherParty:
		return http.StatusConflict

	case KindNotInParty,
		KindNotAMember,
		KindTargetNotFound:
		return http.StatusNotFound

	case KindNotOwner,
		KindPermissionDenied:
		return http.StatusForbidden

	case KindCannotKickSelf,
		KindNameTooLong,
		KindInvalidRequest:
		return http.StatusBadRequest

	default:
		return http.StatusServiceUnavailable
	}
}
