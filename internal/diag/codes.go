package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Resolution (3000-3999)
	ResInfo                     Code = 3000
	ResNoMatchingCall           Code = 3001
	ResAmbiguousCall            Code = 3002
	ResForwardingCycle          Code = 3003
	ResWhereClauseNotParam      Code = 3004
	ResParenlessFieldCollision  Code = 3005
	ResMultiplyDefinedSymbol    Code = 3006
	ResUnknownIdentifier        Code = 3007
	ResInvalidTypeConstruction  Code = 3008
	ResReturnIntentMismatch     Code = 3009
	ResMultipleInheritance      Code = 3010
	ResTupleDeclArityMismatch   Code = 3011
	ResVarArgCountNotIntegral   Code = 3012
	ResGenericFieldAccess       Code = 3013
	ResSelfReferentialInit      Code = 3014

	// I/O (4000-4999)
	IOLoadFileError      Code = 4001
	IOSnapshotDecode     Code = 4002
	IOSnapshotBadVersion Code = 4003

	// Driver (5000-5999)
	DrvInfo            Code = 5000
	DrvConfigError     Code = 5001
	DrvDuplicateModule Code = 5002
	DrvCacheError      Code = 5003
)

var codeDescription = map[Code]string{
	UnknownCode:                "Unknown error",
	ResInfo:                    "Resolution information",
	ResNoMatchingCall:          "No matching function or candidate",
	ResAmbiguousCall:           "Ambiguous call",
	ResForwardingCycle:         "Forwarding cycle detected",
	ResWhereClauseNotParam:     "Where clause does not result in a param bool value",
	ResParenlessFieldCollision: "Parenless method redeclares a field",
	ResMultiplyDefinedSymbol:   "Symbol is multiply defined",
	ResUnknownIdentifier:       "Unknown identifier",
	ResInvalidTypeConstruction: "Invalid type construction",
	ResReturnIntentMismatch:    "Return intent overload type does not match",
	ResMultipleInheritance:     "Multiple inheritance is not supported",
	ResTupleDeclArityMismatch:  "Tuple declaration arity mismatch",
	ResVarArgCountNotIntegral:  "Variadic count expression is not an integral param",
	ResGenericFieldAccess:      "Cannot access field of a still-generic type",
	ResSelfReferentialInit:     "Initializer refers to the value being initialized",
	IOLoadFileError:            "I/O load file error",
	IOSnapshotDecode:           "Cannot decode AST snapshot",
	IOSnapshotBadVersion:       "AST snapshot has unsupported schema version",
	DrvInfo:                    "Driver information",
	DrvConfigError:             "Invalid driver configuration",
	DrvDuplicateModule:         "Duplicate module definition",
	DrvCacheError:              "Disk cache error",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("RES%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("DRV%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
