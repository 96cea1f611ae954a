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
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	testSchema = `<schema name="test" version="1.6">
  <uniqueKey>id</uniqueKey>
  <field name="id" type="string" required="true"/>
  <field name="title" type="text_general"/>
</schema>`
	testSettings = `<config><luceneMatchVersion>9.4</luceneMatchVersion></config>`
)

func TestOpenInstanceDir(t *testing.T) {
	t.Parallel()

	instanceDir := t.TempDir()
	writeFile(t, filepath.Join(instanceDir, "conf", "schema.xml"), testSchema)
	writeFile(t, filepath.Join(instanceDir, "conf", "solrconfig.xml"), testSettings)
	writeFile(t, filepath.Join(instanceDir, "core.properties"), "name=stale")
	dataDir := filepath.Join(t.TempDir(), "data")

	container, core, err := Open(dataDir, instanceDir, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(instanceDir, "core.properties"))
	assert.Equal(t, CoreName, core.Name())
	assert.Equal(t, instanceDir, container.InstanceDir())
	assert.Equal(t, dataDir, core.DataDir())
	assert.Equal(t, "test", core.Schema().Name)
	assert.Equal(t, "id", core.Schema().UniqueKey)
	assert.Len(t, core.Schema().Fields, 2)
	assert.Equal(t, "9.4", core.Settings().LuceneMatchVersion)

	ctx := context.Background()
	numFound, docs, err := core.Query(ctx, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, numFound)
	assert.Empty(t, docs)

	require.NoError(t, core.Add(
		map[string]any{"id": "1", "title": "first"},
		map[string]any{"id": "2", "title": "second"},
		map[string]any{"id": "3", "title": "third"},
	))
	require.NoError(t, core.Add(map[string]any{"id": "2", "title": "replaced"}))
	require.Error(t, core.Add(map[string]any{"title": "no id"}))

	numFound, docs, err = core.Query(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), numFound)
	require.Len(t, docs, 1)
	var doc map[string]string
	require.NoError(t, json.Unmarshal(docs[0], &doc))
	assert.Equal(t, map[string]string{"id": "2", "title": "replaced"}, doc)

	require.NoError(t, core.Close())
	require.NoError(t, core.Close())
	_, _, err = core.Query(ctx, 0, 10)
	require.ErrorIs(t, err, ErrCoreClosed)
	require.ErrorIs(t, core.Add(map[string]any{"id": "4"}), ErrCoreClosed)

	require.NoError(t, container.Shutdown())
	require.NoError(t, container.Shutdown())
	assert.DirExists(t, instanceDir)
	_, err = container.Create("other", instanceDir, nil)
	require.ErrorIs(t, err, ErrShutdown)
}

func TestOpenFromResources(t *testing.T) {
	t.Parallel()

	resources := fstest.MapFS{
		"solr/classpath/conf/schema.xml":     {Data: []byte(testSchema)},
		"solr/classpath/conf/solrconfig.xml": {Data: []byte(testSettings)},
	}
	dataDir := filepath.Join(t.TempDir(), "data")

	container, core, err := Open(dataDir, "./solr/classpath", WithResources(resources))
	require.NoError(t, err)
	instanceDir := container.InstanceDir()
	assert.FileExists(t, filepath.Join(instanceDir, "conf", "schema.xml"))
	assert.FileExists(t, filepath.Join(instanceDir, "conf", "solrconfig.xml"))
	assert.Equal(t, "test", core.Schema().Name)

	numFound, _, err := core.Query(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Zero(t, numFound)

	require.NoError(t, core.Close())
	require.NoError(t, container.Shutdown())
	assert.NoDirExists(t, instanceDir)
	assert.DirExists(t, dataDir)
}

func TestOpenBundledDefault(t *testing.T) {
	t.Parallel()

	container, core, err := Open(filepath.Join(t.TempDir(), "data"), "default")
	require.NoError(t, err)
	assert.Equal(t, "default", core.Schema().Name)
	assert.Equal(t, "id", core.Schema().UniqueKey)
	// Shutdown closes cores that are still open.
	require.NoError(t, container.Shutdown())
	_, _, err = core.Query(context.Background(), 0, 1)
	require.ErrorIs(t, err, ErrCoreClosed)
}

func TestOpenErrors(t *testing.T) {
	t.Parallel()

	dataDir := filepath.Join(t.TempDir(), "data")

	_, _, err := Open("", "default")
	require.ErrorContains(t, err, "no data directory")
	_, _, err = Open(dataDir, "")
	require.ErrorContains(t, err, "no configuration path")

	_, _, err = Open(dataDir, "missing", WithResources(fstest.MapFS{}))
	require.ErrorContains(t, err, "could not open resource missing/conf/solrconfig.xml")

	instanceDir := t.TempDir()
	writeFile(t, filepath.Join(instanceDir, "conf", "schema.xml"), `<schema name="x"></schema>`)
	writeFile(t, filepath.Join(instanceDir, "conf", "solrconfig.xml"), testSettings)
	_, _, err = Open(dataDir, instanceDir)
	require.ErrorContains(t, err, "declares no uniqueKey")

	writeFile(t, filepath.Join(instanceDir, "conf", "solrconfig.xml"), `<schema/>`)
	_, _, err = Open(dataDir, instanceDir)
	require.ErrorContains(t, err, "could not parse")
}

func TestResourcePath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "solr/classpath", resourcePath("./solr/classpath"))
	assert.Equal(t, "solr/classpath", resourcePath("/solr/classpath/"))
	assert.Equal(t, ".", resourcePath("/"))
}

func writeFile(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(name), 0o755))
	require.NoError(t, os.WriteFile(name, []byte(content), 0o600))
}
