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
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"
)

// Schema is the part of a schema artifact that a core relies on.
type Schema struct {
	XMLName   xml.Name `xml:"schema"`
	Name      string   `xml:"name,attr"`
	Version   string   `xml:"version,attr"`
	UniqueKey string   `xml:"uniqueKey"`
	Fields    []Field  `xml:"field"`
}

// Field is a field declared in a schema.
type Field struct {
	Name     string `xml:"name,attr"`
	Type     string `xml:"type,attr"`
	Required bool   `xml:"required,attr"`
}

// Settings is the part of a settings artifact that a core relies on.
type Settings struct {
	XMLName            xml.Name `xml:"config"`
	LuceneMatchVersion string   `xml:"luceneMatchVersion"`
}

func loadSchema(name string) (*Schema, error) {
	var schema Schema
	if err := decodeFile(name, &schema); err != nil {
		return nil, err
	}
	if schema.UniqueKey == "" {
		return nil, fmt.Errorf("schema %s declares no uniqueKey", name)
	}
	return &schema, nil
}

func loadSettings(name string) (*Settings, error) {
	var settings Settings
	if err := decodeFile(name, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

func decodeFile(name string, target any) (retErr error) {
	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer func() {
		retErr = multierr.Append(retErr, file.Close())
	}()
	if err := decode(file, target); err != nil {
		return fmt.Errorf("could not parse %s: %w", name, err)
	}
	return nil
}

func decode(reader io.Reader, target any) error {
	return xml.NewDecoder(reader).Decode(target)
}
