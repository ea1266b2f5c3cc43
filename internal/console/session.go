package console

import (
	"fmt"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/kingrea/birdwatcher/internal/plugin"
	"github.com/kingrea/birdwatcher/internal/spool"
	"github.com/kingrea/birdwatcher/internal/store"
)

// Session is the mutable state of one console run.
type Session struct {
	mu        sync.RWMutex
	Workspace *store.Workspace
	Module    *plugin.ModuleDescriptor
	Spool     *spool.Spool
}

// Workspace returns the current workspace.
func (c *Console) Workspace() *store.Workspace {
	c.session.mu.RLock()
	defer c.session.mu.RUnlock()
	return c.session.Workspace
}

// SetWorkspace switches the current workspace.
func (c *Console) SetWorkspace(ws *store.Workspace) {
	c.session.mu.Lock()
	c.session.Workspace = ws
	c.session.mu.Unlock()
	if ws != nil {
		c.logger.Info("workspace selected", zap.String("workspace", ws.Name))
	}
}

// ActiveModule returns the loaded module, if any.
func (c *Console) ActiveModule() *plugin.ModuleDescriptor {
	c.session.mu.RLock()
	defer c.session.mu.RUnlock()
	return c.session.Module
}

// UseModule makes desc the active module.
func (c *Console) UseModule(desc *plugin.ModuleDescriptor) {
	c.session.mu.Lock()
	c.session.Module = desc
	c.session.mu.Unlock()
}

// UnloadModule clears the active module.
func (c *Console) UnloadModule() {
	c.UseModule(nil)
}

// StartSpool mirrors all further output into path, replacing any spool that
// is already active. Relative paths resolve against the configured spool
// directory.
func (c *Console) StartSpool(path string) error {
	if c.cfg != nil && !filepath.IsAbs(path) {
		path = filepath.Join(c.cfg.SpoolDir(), path)
	}
	next, err := spool.Open(path)
	if err != nil {
		return err
	}
	if err := c.StopSpool(); err != nil {
		_ = next.Close()
		return err
	}
	c.session.mu.Lock()
	c.session.Spool = next
	c.session.mu.Unlock()
	c.out.SetSpool(next)
	c.logger.Info("spool started", zap.String("path", next.Path()))
	return nil
}

// StopSpool detaches and closes the active spool. It is a no-op without one.
func (c *Console) StopSpool() error {
	c.session.mu.Lock()
	current := c.session.Spool
	c.session.Spool = nil
	c.session.mu.Unlock()
	if current == nil {
		return nil
	}
	c.out.SetSpool(nil)
	if err := current.Close(); err != nil {
		return fmt.Errorf("console: close spool: %w", err)
	}
	c.logger.Info("spool stopped", zap.String("path", current.Path()))
	return nil
}

// SpoolPath returns the active spool file or "".
func (c *Console) SpoolPath() string {
	c.session.mu.RLock()
	defer c.session.mu.RUnlock()
	if c.session.Spool == nil {
		return ""
	}
	return c.session.Spool.Path()
}
