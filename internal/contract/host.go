package contract

// Storage is the instance storage of the contract. Get reports whether the
// key exists; v is left untouched when it does not.
type Storage interface {
	Get(key string, v any) (bool, error)
	Set(key string, v any) error
	ExtendTTL(threshold, extendTo uint32)
}

// Authorizer fails unless the current call is signed by identity.
type Authorizer interface {
	RequireAuth(identity string) error
}

type Clock interface {
	Timestamp() uint64
}

// Host is everything an entry point may touch. Writes made through a Host
// only become visible if the entry point returns nil.
type Host interface {
	Storage
	Authorizer
	Clock
	Log(msg string)
	Emit(eventType string, attributes map[string]string)
}
