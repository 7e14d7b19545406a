package models

// Optional marks whether a field was submitted at all, independent of its value.
type Optional[T any] struct {
	Value T
	Set   bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// UserPatch is a partial update of a user. Only set fields are applied;
// a set field with a zero value clears it.
type UserPatch struct {
	Username Optional[string]
	Email    Optional[string]
	Bio      Optional[string]
	IsOnline Optional[bool]
	Avatar   *Upload
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return !p.Username.Set && !p.Email.Set && !p.Bio.Set && !p.IsOnline.Set && p.Avatar == nil
}

// Apply copies set scalar fields onto u. Avatar is handled separately because
// it involves the file store.
func (p UserPatch) Apply(u *User) {
	if p.Username.Set {
		u.Username = p.Username.Value
	}
	if p.Email.Set {
		u.Email = p.Email.Value
	}
	if p.Bio.Set {
		u.Bio = p.Bio.Value
	}
	if p.IsOnline.Set {
		u.IsOnline = p.IsOnline.Value
	}
}

type ChatPatch struct {
	Name         Optional[string]
	IsGroup      Optional[bool]
	Participants Optional[[]int]
}

type MessagePatch struct {
	Text   Optional[string]
	Image  Optional[*int]
	IsRead Optional[bool]
}
