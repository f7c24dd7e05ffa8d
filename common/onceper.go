package common

import (
	"sync"
)

// OncePer computes a value at most once per key. Keys must be
// comparable.
type OncePer struct {
	values     sync.Map
	valuesLock sync.Mutex
}

func (once *OncePer) Once(key interface{}, value func() interface{}) interface{} {
	if v, ok := once.values.Load(key); ok {
		return v
	}

	once.valuesLock.Lock()
	defer once.valuesLock.Unlock()

	if v, ok := once.values.Load(key); ok {
		return v
	}

	v := value()
	once.values.Store(key, v)

	return v
}
