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
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

//go:embed bundled
var bundled embed.FS

// BundledResources returns the configuration artifacts compiled into this
// package. It holds one configuration, at path "default".
func BundledResources() fs.FS {
	resources, err := fs.Sub(bundled, "bundled")
	if err != nil {
		// The directory is embedded above, so this cannot happen.
		panic(err)
	}
	return resources
}

// Option is an option used to customize Open.
type Option interface {
	apply(*openOptions)
}

type optionFunc func(*openOptions)

func (f optionFunc) apply(opts *openOptions) {
	f(opts)
}

// WithResources configures where configuration artifacts are looked up
// when the configuration path does not exist on disk. If no WithResources
// option is given, BundledResources is used.
func WithResources(resources fs.FS) Option {
	return optionFunc(func(opts *openOptions) {
		opts.resources = resources
	})
}

// WithLogger configures the logger used by the container.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(opts *openOptions) {
		opts.logger = logger
	})
}

type openOptions struct {
	resources fs.FS
	logger    *zap.Logger
}

// Open creates a container holding a single core named CoreName, storing
// its documents in dataDir.
//
// If configPath is an existing directory, it is the core's instance
// directory and a stale core.properties file in it is removed first.
// Otherwise configPath names a directory in the resource file system; its
// conf/solrconfig.xml and conf/schema.xml are copied into a temporary
// instance directory that the container removes on shutdown.
//
// The caller must call Shutdown on the returned container after closing
// the core.
func Open(dataDir, configPath string, opts ...Option) (*Container, *Core, error) {
	var openOpts openOptions
	for _, opt := range opts {
		opt.apply(&openOpts)
	}
	if openOpts.resources == nil {
		openOpts.resources = BundledResources()
	}
	if openOpts.logger == nil {
		openOpts.logger = zap.NewNop()
	}

	if dataDir == "" {
		return nil, nil, errors.New("no data directory given")
	}
	if configPath == "" {
		return nil, nil, errors.New("no configuration path given")
	}
	dataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, nil, err
	}

	if info, err := os.Stat(configPath); err == nil && info.IsDir() {
		return openInstanceDir(dataDir, configPath, openOpts.logger)
	}
	return openFromResources(dataDir, configPath, openOpts)
}

func openInstanceDir(dataDir, configPath string, logger *zap.Logger) (*Container, *Core, error) {
	instanceDir, err := filepath.Abs(configPath)
	if err != nil {
		return nil, nil, err
	}
	removeStaleCoreProperties(instanceDir, logger)

	container := NewContainer(instanceDir, logger)
	core, err := container.Create(CoreName, instanceDir, map[string]string{PropertyDataDir: dataDir})
	if err != nil {
		return nil, nil, multierr.Append(err, container.Shutdown())
	}
	return container, core, nil
}

func openFromResources(dataDir, configPath string, opts openOptions) (*Container, *Core, error) {
	container, err := NewTempContainer(opts.logger)
	if err != nil {
		return nil, nil, err
	}
	resourceDir := resourcePath(configPath)
	for _, artifact := range []string{defaultConfigFile, defaultSchemaFile} {
		err := copyResource(opts.resources, path.Join(resourceDir, artifact), filepath.Join(container.InstanceDir(), filepath.FromSlash(artifact)))
		if err != nil {
			return nil, nil, multierr.Append(err, container.Shutdown())
		}
	}
	core, err := container.Create(CoreName, container.InstanceDir(), map[string]string{
		PropertyDataDir: dataDir,
		PropertyConfig:  defaultConfigFile,
		PropertySchema:  defaultSchemaFile,
	})
	if err != nil {
		return nil, nil, multierr.Append(err, container.Shutdown())
	}
	return container, core, nil
}

// resourcePath turns a configuration path into a valid fs.FS path.
func resourcePath(configPath string) string {
	cleaned := path.Clean(filepath.ToSlash(configPath))
	cleaned = strings.TrimLeft(cleaned, "/")
	if cleaned == "" {
		return "."
	}
	return cleaned
}

func copyResource(resources fs.FS, name, dest string) (retErr error) {
	source, err := resources.Open(name)
	if err != nil {
		return fmt.Errorf("could not open resource %s: %w", name, err)
	}
	defer func() {
		retErr = multierr.Append(retErr, source.Close())
	}()
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	target, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer func() {
		retErr = multierr.Append(retErr, target.Close())
	}()
	_, err = io.Copy(target, source)
	return err
}

func removeStaleCoreProperties(instanceDir string, logger *zap.Logger) {
	name := filepath.Join(instanceDir, corePropertiesFile)
	err := os.Remove(name)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Debug("could not remove stale core properties", zap.String("path", name), zap.Error(err))
	}
}
