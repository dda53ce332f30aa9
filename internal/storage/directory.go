package storage

import (
	"parley/internal/models"

	"github.com/c-pro/geche"
)

type userStore interface {
	GetUser(username string) (models.User, error)
	AddUser(username string) (models.User, error)
	ListUsers() ([]models.User, error)
}

// CachedDirectory is a read-through cache in front of the users collection.
// Users are never renamed or deleted, so only positive lookups are cached.
type CachedDirectory struct {
	store userStore
	cache geche.Geche[string, models.User]
}

func NewCachedDirectory(store userStore) *CachedDirectory {
	return &CachedDirectory{
		store: store,
		cache: geche.NewMapCache[string, models.User](),
	}
}

func (d *CachedDirectory) GetUser(username string) (models.User, error) {
	if user, err := d.cache.Get(username); err == nil {
		return user, nil
	}

	user, err := d.store.GetUser(username)
	if err != nil {
		return models.User{}, err
	}
	d.cache.Set(username, user)
	return user, nil
}

// ListUsers always reads through to the store.
func (d *CachedDirectory) ListUsers() ([]models.User, error) {
	return d.store.ListUsers()
}

func (d *CachedDirectory) AddUser(username string) (models.User, error) {
	user, err := d.store.AddUser(username)
	if err != nil {
		return models.User{}, err
	}
	d.cache.Set(username, user)
	return user, nil
}
