package store

import "errors"

// ErrNotFound is returned by update operations when the target entry does
// not exist. Lookup accessors signal the same condition with an ok bool.
var ErrNotFound = errors.New("store: not found")

// ErrDuplicateName is returned by CreateProfile and UpdateProfile when
// another profile already holds the requested name (case-insensitive).
var ErrDuplicateName = errors.New("store: name already exists")
