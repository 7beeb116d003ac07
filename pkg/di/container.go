// Package di provides dependency injection container
package di

import (
	"github.com/ssargent/rolodex/pkg/api"     //nolint:depguard
	"github.com/ssargent/rolodex/pkg/storage" //nolint:depguard
)

// Container holds all the dependencies for the application
type Container struct {
	storeFactory  storage.StoreFactory
	serverFactory api.ServerFactory
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		storeFactory:  storage.NewStoreFactory(),
		serverFactory: api.NewServerFactory(),
	}
}

// GetStoreFactory returns the contact store factory
func (c *Container) GetStoreFactory() storage.StoreFactory {
	return c.storeFactory
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetStoreFactory allows overriding the store factory (for testing)
func (c *Container) SetStoreFactory(factory storage.StoreFactory) {
	c.storeFactory = factory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}
