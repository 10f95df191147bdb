package types

// TypeID indexes the type interner. ID 0 is the invalid sentinel.
type TypeID uint32

const NoTypeID TypeID = 0

func (id TypeID) IsValid() bool { return id != NoTypeID }
