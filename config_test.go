// Copyright (c) 2026 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package uhttp

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromYAML(t *testing.T) {
	env := map[string]string{
		"PORT":    "9090",
		"TIMEOUT": "2s",
	}
	resolver := InterpolationResolver(func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	})

	tests := []struct {
		msg     string
		give    string
		want    Config
		wantErr []string
	}{
		{
			msg:  "empty",
			give: "",
			want: Config{},
		},
		{
			msg: "all fields",
			give: `
host: 127.0.0.1
port: 8080
backlog: 511
initialTimeout: 3s
keepAliveTimeout: 250ms
loops: 4
readBufferSize: 4096
maxHeaderSize: 8192
`,
			want: Config{
				Host:             "127.0.0.1",
				Port:             8080,
				Backlog:          511,
				InitialTimeout:   3 * time.Second,
				KeepAliveTimeout: 250 * time.Millisecond,
				Loops:            4,
				ReadBufferSize:   4096,
				MaxHeaderSize:    8192,
			},
		},
		{
			msg: "interpolated",
			give: `
host: ${HOST:localhost}
port: ${PORT}
initialTimeout: ${TIMEOUT}
`,
			want: Config{
				Host:           "localhost",
				Port:           9090,
				InitialTimeout: 2 * time.Second,
			},
		},
		{
			msg:     "missing variable",
			give:    "port: ${NOPE}",
			wantErr: []string{`failed to render "${NOPE}"`},
		},
		{
			msg:     "unknown key",
			give:    "hots: 127.0.0.1",
			wantErr: []string{"hots"},
		},
		{
			msg: "invalid values",
			give: `
port: 70000
loops: -1
`,
			wantErr: []string{
				"invalid port 70000",
				"invalid number of loops -1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			cfg, err := LoadConfigFromYAML(strings.NewReader(tt.give), resolver)
			if len(tt.wantErr) > 0 {
				require.Error(t, err)
				for _, msg := range tt.wantErr {
					assert.Contains(t, err.Error(), msg)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg)
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{Port: 80}.withDefaults()
	assert.Equal(t, Config{
		Port:             80,
		Backlog:          DefaultBacklog,
		InitialTimeout:   DefaultInitialTimeout,
		KeepAliveTimeout: DefaultKeepAliveTimeout,
		Loops:            1,
		ReadBufferSize:   DefaultReadBufferSize,
		MaxHeaderSize:    DefaultMaxHeaderSize,
	}, cfg)
	assert.Equal(t, ":80", cfg.Address())
	assert.Equal(t, "[::1]:80", Config{Host: "::1", Port: 80}.Address())
}

func TestNewServerRejectsInvalidConfig(t *testing.T) {
	_, err := NewServer(Config{Port: -1, InitialTimeout: -time.Second}, HandlerFunc(func(Event) {}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port -1")
	assert.Contains(t, err.Error(), "invalid initial timeout")

	_, err = NewServer(Config{}, nil)
	assert.EqualError(t, err, "uhttp: a handler is required")
}
