package scopes

// ScopeID indexes the scope arena. Index 0 is reserved so the zero
// value means "no scope".
type ScopeID uint32

const NoScopeID ScopeID = 0

func (id ScopeID) IsValid() bool { return id != NoScopeID }
