package behaviour

import "errors"

var (
	// ErrNoBehaviours 组合为空
	ErrNoBehaviours = errors.New("behaviour: no behaviours")

	// ErrDuplicateKey 组合中出现重复的 Key
	ErrDuplicateKey = errors.New("behaviour: duplicate key")

	// ErrEmptyKey Key 为空
	ErrEmptyKey = errors.New("behaviour: empty key")
)
