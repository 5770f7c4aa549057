package errx

import (
	"fmt"
	"sync"
)

type definition struct {
	typ     Type
	status  int
	message string
}

// Registry holds the error codes of one domain under a common prefix.
type Registry struct {
	prefix string
	mu     sync.RWMutex
	defs   map[Code]definition
}

func NewRegistry(prefix string) *Registry {
	return &Registry{
		prefix: prefix,
		defs:   make(map[Code]definition),
	}
}

// Register declares a code and returns its fully qualified form.
func (r *Registry) Register(name string, t Type, httpStatus int, message string) Code {
	code := Code(fmt.Sprintf("%s.%s", r.prefix, name))

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[code]; exists {
		panic(fmt.Sprintf("errx: duplicate error code %s", code))
	}
	r.defs[code] = definition{typ: t, status: httpStatus, message: message}
	return code
}

func (r *Registry) New(code Code) *Error {
	r.mu.RLock()
	def, ok := r.defs[code]
	r.mu.RUnlock()
	if !ok {
		return &Error{
			Code:       code,
			Type:       TypeInternal,
			Message:    "unregistered error code",
			HTTPStatus: statusForType(TypeInternal),
		}
	}
	return &Error{
		Code:       code,
		Type:       def.typ,
		Message:    def.message,
		HTTPStatus: def.status,
	}
}

func (r *Registry) NewWithCause(code Code, cause error) *Error {
	return r.New(code).WithCause(cause)
}

func (r *Registry) NewWithMessage(code Code, message string) *Error {
	e := r.New(code)
	e.Message = message
	return e
}
