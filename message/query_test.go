// Copyright 2020 DataStax
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

package message

import (
	"bytes"
	"testing"

	"github.com/rusticdb/rusticdb/primitive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryCodec_EncodeDecode_RoundTrip(t *testing.T) {
	codec := &queryCodec{}
	version := primitive.ProtocolVersion3

	serialCl := primitive.ConsistencyLevelLocalSerial
	timestamp := int64(123)

	tests := []*Query{
		{
			Query:   "SELECT * FROM ks1.t1",
			Options: &QueryOptions{},
		},
		{
			Query: "INSERT INTO ks1.t1 (a, b) VALUES (?, ?)",
			Options: &QueryOptions{
				Consistency:       primitive.ConsistencyLevelLocalQuorum,
				SkipMetadata:      true,
				PageSize:          100,
				PagingState:       []byte{0xca, 0xfe, 0xba, 0xbe},
				SerialConsistency: &serialCl,
				DefaultTimestamp:  &timestamp,
				PositionalValues: []*primitive.Value{
					primitive.NewValue([]byte{1}),
					primitive.NewValue([]byte{2}),
				},
			},
		},
	}

	for _, query := range tests {
		t.Run(query.Query, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, codec.Encode(query, &buf, version))

			length, err := codec.EncodedLength(query, version)
			require.NoError(t, err)
			assert.Equal(t, buf.Len(), length)

			decoded, err := codec.Decode(&buf, version)
			require.NoError(t, err)
			assert.Equal(t, query, decoded)
		})
	}
}

func TestQueryCodec_GetOpCode(t *testing.T) {
	assert.Equal(t, primitive.OpCodeQuery, (&queryCodec{}).GetOpCode())
}
