// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"rivaas.dev/traceprop/config/codec"
)

type failingDecoder struct{}

func (failingDecoder) Decode([]byte, any) error { return errors.New("corrupt document") }

type FileSourceTestSuite struct {
	suite.Suite
	dir string
}

func (s *FileSourceTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
}

func TestFileSourceTestSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(FileSourceTestSuite))
}

func (s *FileSourceTestSuite) write(name, content string) string {
	path := filepath.Join(s.dir, name)
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o600))

	return path
}

func (s *FileSourceTestSuite) TestLoad_Auto() {
	path := s.write("traceprop.yaml", "service_name: checkout\nserver:\n  addr: localhost:9000\n")

	file, err := NewFileAuto(path)
	s.Require().NoError(err)

	conf, err := file.Load(context.Background())
	s.Require().NoError(err)
	s.Equal("checkout", conf["service_name"])
	s.Equal(map[string]any{"addr": "localhost:9000"}, conf["server"])
}

func (s *FileSourceTestSuite) TestLoad_RereadsFile() {
	path := s.write("traceprop.json", `{"sample_rate": 1}`)
	file := NewFile(path, codec.JSONCodec{})

	_, err := file.Load(context.Background())
	s.Require().NoError(err)

	s.write("traceprop.json", `{"sample_rate": 0.1}`)
	conf, err := file.Load(context.Background())
	s.Require().NoError(err)
	s.InDelta(0.1, conf["sample_rate"], 1e-9)
}

func (s *FileSourceTestSuite) TestLoad_Content() {
	file := NewFileContent([]byte("send_default_pii = true\n"), codec.TOMLCodec{})
	conf, err := file.Load(context.Background())
	s.Require().NoError(err)
	s.Equal(true, conf["send_default_pii"])
}

func (s *FileSourceTestSuite) TestLoad_Missing() {
	file := NewFile(filepath.Join(s.dir, "absent.yaml"), codec.YAMLCodec{})
	_, err := file.Load(context.Background())
	s.Require().Error(err)
	s.ErrorIs(err, os.ErrNotExist)
}

func (s *FileSourceTestSuite) TestLoad_DecodeError() {
	file := NewFileContent([]byte("x"), failingDecoder{})
	_, err := file.Load(context.Background())
	s.Require().Error(err)
	s.Contains(err.Error(), "failed to decode file: corrupt document")
}

func (s *FileSourceTestSuite) TestLoad_Cancelled() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileContent([]byte("{}"), codec.JSONCodec{}).Load(ctx)
	s.ErrorIs(err, context.Canceled)
}

func (s *FileSourceTestSuite) TestNewFileAuto_UnknownExtension() {
	_, err := NewFileAuto(filepath.Join(s.dir, "traceprop.conf"))
	s.Error(err)
}
