// Copyright 2023-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package embedded

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// CoreName is the name of the core created by Open.
const CoreName = "Embedded-Core"

// Core properties understood by Container.Create.
const (
	// PropertyDataDir is the directory holding the core's documents. It
	// defaults to "data" under the instance path.
	PropertyDataDir = "dataDir"
	// PropertyConfig is the settings artifact, relative to the instance
	// path unless absolute. It defaults to "conf/solrconfig.xml".
	PropertyConfig = "config"
	// PropertySchema is the schema artifact, relative to the instance
	// path unless absolute. It defaults to "conf/schema.xml".
	PropertySchema = "schema"
)

const (
	defaultConfigFile  = "conf/solrconfig.xml"
	defaultSchemaFile  = "conf/schema.xml"
	corePropertiesFile = "core.properties"
	tempDirPattern     = "embedded-search-client"
)

// ErrShutdown is returned when creating a core in a container that has
// been shut down.
var ErrShutdown = errors.New("container is shut down")

// Container hosts search cores in-process.
type Container struct {
	instanceDir string
	ownsDir     bool
	logger      *zap.Logger

	mu    sync.Mutex
	cores map[string]*Core
	down  bool
}

// NewContainer returns a container rooted at the given instance
// directory. The directory is not removed on shutdown.
func NewContainer(instanceDir string, logger *zap.Logger) *Container {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Container{
		instanceDir: instanceDir,
		logger:      logger,
		cores:       map[string]*Core{},
	}
}

// NewTempContainer returns a container rooted at a new temporary
// directory. The directory and everything in it is removed when the
// container shuts down.
func NewTempContainer(logger *zap.Logger) (*Container, error) {
	dir, err := os.MkdirTemp("", tempDirPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary directory: %w", err)
	}
	container := NewContainer(dir, logger)
	container.ownsDir = true
	return container, nil
}

// InstanceDir returns the container's instance directory.
func (c *Container) InstanceDir() string {
	return c.instanceDir
}

// Create loads the configuration artifacts under instancePath, opens the
// core's storage and registers the core under name.
func (c *Container) Create(name, instancePath string, properties map[string]string) (*Core, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return nil, ErrShutdown
	}
	if _, ok := c.cores[name]; ok {
		return nil, fmt.Errorf("core %q already exists", name)
	}

	settings, err := loadSettings(artifactPath(instancePath, properties[PropertyConfig], defaultConfigFile))
	if err != nil {
		return nil, err
	}
	schema, err := loadSchema(artifactPath(instancePath, properties[PropertySchema], defaultSchemaFile))
	if err != nil {
		return nil, err
	}
	dataDir := properties[PropertyDataDir]
	if dataDir == "" {
		dataDir = filepath.Join(instancePath, "data")
	}
	db, err := badger.Open(badger.DefaultOptions(dataDir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("could not open data directory %s: %w", dataDir, err)
	}

	core := &Core{
		name:         name,
		instancePath: instancePath,
		dataDir:      dataDir,
		schema:       schema,
		settings:     settings,
		db:           db,
	}
	c.cores[name] = core
	c.logger.Info("created embedded core",
		zap.String("core", name),
		zap.String("instance_path", instancePath),
		zap.String("data_dir", dataDir),
	)
	return core, nil
}

// Shutdown closes every core still open and, for a temporary container,
// removes its instance directory. Subsequent calls are no-ops.
func (c *Container) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return nil
	}
	c.down = true

	var err error
	for _, core := range c.cores {
		err = multierr.Append(err, core.Close())
	}
	c.cores = nil
	if c.ownsDir {
		err = multierr.Append(err, os.RemoveAll(c.instanceDir))
	}
	c.logger.Info("embedded container shut down", zap.String("instance_dir", c.instanceDir))
	return err
}

func artifactPath(instancePath, property, fallback string) string {
	if property == "" {
		property = fallback
	}
	if filepath.IsAbs(property) {
		return property
	}
	return filepath.Join(instancePath, filepath.FromSlash(property))
}
