package domain

type ErrNotFound string

func (e ErrNotFound) Error() string { return string(e) + " not found" }

type ErrConflict string

func (e ErrConflict) Error() string { return string(e) }

type ErrBadRequest string

func (e ErrBadRequest) Error() string { return string(e) }

// Store-level sentinels. Both are comparable values so errors.Is matches them
// through wrapping.
var (
	ErrOrderNotFound  error = ErrNotFound("order")
	ErrDuplicateOrder error = ErrConflict("order already recorded")
)
