package vault

import "sync"

// MemoryBackend keeps credentials in a process-local map. Used in tests
// and as a scratch store; nothing survives the process.
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]string)}
}

// Name returns the backend identifier.
func (b *MemoryBackend) Name() string {
	return MemoryName
}

// Store saves a credential in the map.
func (b *MemoryBackend) Store(service, account, key, value string) error {
	ns, err := Namespace(service, account, key)
	if err != nil {
		return err
	}
	return b.storeNS(ns, value)
}

// Retrieve reads a credential from the map.
func (b *MemoryBackend) Retrieve(service, account, key string) (string, error) {
	ns, err := Namespace(service, account, key)
	if err != nil {
		return "", err
	}
	return b.retrieveNS(ns)
}

// Delete removes a credential from the map.
func (b *MemoryBackend) Delete(service, account, key string) error {
	ns, err := Namespace(service, account, key)
	if err != nil {
		return err
	}
	return b.deleteNS(ns)
}

// Exists checks whether a credential is present.
func (b *MemoryBackend) Exists(service, account, key string) bool {
	ns, err := Namespace(service, account, key)
	if err != nil {
		return false
	}
	return b.existsNS(ns)
}

// ListAccounts enumerates accounts holding key for service.
func (b *MemoryBackend) ListAccounts(service, key string) ([]string, error) {
	namespaces, err := b.scanNamespaces()
	if err != nil {
		return nil, err
	}
	return accountsFromNamespaces(namespaces, service, key), nil
}

// Probe always succeeds.
func (b *MemoryBackend) Probe() error {
	return nil
}

func (b *MemoryBackend) storeNS(ns, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[ns] = value
	return nil
}

func (b *MemoryBackend) retrieveNS(ns string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[ns]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (b *MemoryBackend) deleteNS(ns string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.values[ns]; !ok {
		return ErrNotFound
	}
	delete(b.values, ns)
	return nil
}

func (b *MemoryBackend) existsNS(ns string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.values[ns]
	return ok
}

func (b *MemoryBackend) scanNamespaces() ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	namespaces := make([]string, 0, len(b.values))
	for ns := range b.values {
		if _, ok := splitNamespace(ns); ok {
			namespaces = append(namespaces, ns)
		}
	}
	return namespaces, nil
}
