package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownOwner     = errors.New("notify: unknown owner")
	ErrNoContact        = errors.New("notify: owner has no contact address")
	ErrInvalidDirectory = errors.New("notify: invalid owner directory")
)

// Owner is one tenant entry of a static directory.
type Owner struct {
	Email  string `yaml:"email"`
	Name   string `yaml:"name"`
	ID     int64  `yaml:"id"`
	Active bool   `yaml:"active"`
}

// StaticDirectory answers owner lookups from a fixed list, for
// deployments without a tenant service. It implements
// domainmap.OwnerDirectory.
type StaticDirectory struct {
	owners map[int64]Owner
	mu     sync.RWMutex
}

// NewStaticDirectory builds a directory from owners. Duplicate ids keep
// the last entry.
func NewStaticDirectory(owners ...Owner) *StaticDirectory {
	d := &StaticDirectory{owners: make(map[int64]Owner, len(owners))}
	for _, o := range owners {
		d.owners[o.ID] = o
	}
	return d
}

// LoadDirectory reads a YAML file of the form:
//
//	owners:
//	  - id: 1
//	    email: ops@example.com
//	    active: true
func LoadDirectory(path string) (*StaticDirectory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseDirectory(f)
}

// ParseDirectory reads the LoadDirectory format from r.
func ParseDirectory(r io.Reader) (*StaticDirectory, error) {
	var doc struct {
		Owners []Owner `yaml:"owners"`
	}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Join(ErrInvalidDirectory, err)
	}
	for _, o := range doc.Owners {
		if o.ID <= 0 {
			return nil, fmt.Errorf("%w: owner id must be positive, got %d", ErrInvalidDirectory, o.ID)
		}
	}
	return NewStaticDirectory(doc.Owners...), nil
}

// IsActive reports whether ownerID is listed and active.
func (d *StaticDirectory) IsActive(_ context.Context, ownerID int64) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	o, ok := d.owners[ownerID]
	return ok && o.Active, nil
}

// Contact returns the owner's email address.
func (d *StaticDirectory) Contact(_ context.Context, ownerID int64) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	o, ok := d.owners[ownerID]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownOwner, ownerID)
	}
	if o.Email == "" {
		return "", fmt.Errorf("%w: %d", ErrNoContact, ownerID)
	}
	return o.Email, nil
}

// Put adds or replaces an owner.
func (d *StaticDirectory) Put(o Owner) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.owners[o.ID] = o
}

// Len returns the number of owners.
func (d *StaticDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.owners)
}
