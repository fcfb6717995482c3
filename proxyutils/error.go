package proxyutils

import "fmt"

var (
	ErrNotAnInterface       = fmt.Errorf("supplied type is not an interface")
	ErrTypeIdentity         = fmt.Errorf("type does not resolve to itself under loader")
	ErrConflictingNamespace = fmt.Errorf("non-public interfaces from different namespaces")
	ErrLimitExceeded        = fmt.Errorf("interface limit exceeded")
	ErrEmission             = fmt.Errorf("proxy type emission failed")
	ErrUnsupportedOperation = fmt.Errorf("unsupported operation")
)
