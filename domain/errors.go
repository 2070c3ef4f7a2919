package domain

// ErrorKind classifies a failure for display. The taxonomy is deliberately flat.
type ErrorKind int

const (
	// KindValidation is a local precondition failure; nothing was sent.
	KindValidation ErrorKind = iota + 1
	// KindNetwork covers transport failures and non-2xx responses.
	KindNetwork
	// KindDecode means the response arrived but did not match the expected shape.
	KindDecode
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNetwork:
		return "network"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}
