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


package codec

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

// EnvVarCodecTestSuite is a test suite for the EnvVarCodec.
type EnvVarCodecTestSuite struct {
	suite.Suite
	codec EnvVarCodec
}

func (s *EnvVarCodecTestSuite) SetupTest() {
	s.codec = EnvVarCodec{}
}

func TestEnvVarCodecTestSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(EnvVarCodecTestSuite))
}

func (s *EnvVarCodecTestSuite) decode(data string) map[string]any {
	var v map[string]any
	s.Require().NoError(s.codec.Decode([]byte(data), &v))

	return v
}

func (s *EnvVarCodecTestSuite) TestDecode_Simple() {
	v := s.decode("SERVICE_NAME=checkout\nSAMPLE_RATE= 0.25 ")
	s.Equal("checkout", v["service_name"])
	s.Equal("0.25", v["sample_rate"])
}

func (s *EnvVarCodecTestSuite) TestDecode_Nested() {
	v := s.decode("SERVER__ADDR=:9090\nSERVER__SHUTDOWN_TIMEOUT=5s\nEXPORTER__PROVIDER=otlp")

	server, ok := v["server"].(map[string]any)
	s.Require().True(ok)
	s.Equal(":9090", server["addr"])
	s.Equal("5s", server["shutdown_timeout"])

	exporter, ok := v["exporter"].(map[string]any)
	s.Require().True(ok)
	s.Equal("otlp", exporter["provider"])
}

func (s *EnvVarCodecTestSuite) TestDecode_ValueWithEquals() {
	v := s.decode("EXPORTER__ENDPOINT=http://collector:4318/v1/traces?a=b")
	exporter, ok := v["exporter"].(map[string]any)
	s.Require().True(ok)
	s.Equal("http://collector:4318/v1/traces?a=b", exporter["endpoint"])
}

func (s *EnvVarCodecTestSuite) TestDecode_ScalarReplacedBySection() {
	v := s.decode("SERVER=yes\nSERVER__ADDR=:80")
	server, ok := v["server"].(map[string]any)
	s.Require().True(ok)
	s.Equal(":80", server["addr"])
}

func (s *EnvVarCodecTestSuite) TestDecode_SkipsMalformed() {
	v := s.decode("NOEQUALS\n=orphan\n____=x\nDEBUG=true")
	s.Equal(map[string]any{"debug": "true"}, v)
}

func (s *EnvVarCodecTestSuite) TestDecode_Empty() {
	s.Empty(s.decode(""))
}

func (s *EnvVarCodecTestSuite) TestDecode_InvalidTarget() {
	var v map[string]string
	err := s.codec.Decode([]byte("A=b"), &v)
	s.Require().Error(err)
	s.Contains(err.Error(), "expected *map[string]any")
}

func (s *EnvVarCodecTestSuite) TestEncode_Unsupported() {
	_, err := s.codec.Encode(map[string]any{"a": 1})
	s.Error(err)
}
