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
	"fmt"
	"io"
	"io/ioutil"
	"net"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/uber-go/mapdecode"
	"go.uber.org/multierr"
	"go.uber.org/uhttp/internal/interpolate"
	"go.uber.org/uhttp/internal/tokenizer"
	"gopkg.in/yaml.v2"
)

const (
	_tagName           = "config"
	_interpolateOption = "interpolate"

	// DefaultBacklog is the accept backlog used when none is configured.
	DefaultBacklog = 1024

	// DefaultInitialTimeout is how long a new connection may stay silent
	// before it is closed.
	DefaultInitialTimeout = 10 * time.Second

	// DefaultKeepAliveTimeout is how long a kept-alive connection may stay
	// idle after a response before it is closed.
	DefaultKeepAliveTimeout = 500 * time.Millisecond

	// DefaultReadBufferSize is the size of the buffers connections read
	// into.
	DefaultReadBufferSize = 64 * 1024

	// DefaultMaxHeaderSize bounds the request line and headers of a request.
	DefaultMaxHeaderSize = tokenizer.DefaultMaxHeaderSize
)

// Config configures a Server. Zero values are replaced by defaults.
//
// Config may be loaded from YAML with LoadConfigFromYAML:
//
//	host: 127.0.0.1
//	port: ${PORT:8080}
//	backlog: 511
//	initialTimeout: 10s
//	keepAliveTimeout: 500ms
//	loops: 4
//
// Fields marked for interpolation may reference environment variables.
type Config struct {
	// Host is the address to bind to. Empty means all interfaces.
	Host string `config:"host,interpolate"`

	// Port is the TCP port to listen on. Zero picks an ephemeral port.
	Port int `config:"port,interpolate"`

	// Backlog is the size of the accept queue.
	Backlog int `config:"backlog"`

	// InitialTimeout closes connections that send nothing for this long
	// after they were accepted.
	InitialTimeout time.Duration `config:"initialTimeout,interpolate"`

	// KeepAliveTimeout closes kept-alive connections that send nothing for
	// this long after a response was written.
	KeepAliveTimeout time.Duration `config:"keepAliveTimeout,interpolate"`

	// Loops is the number of event loops connections are spread over.
	Loops int `config:"loops,interpolate"`

	// ReadBufferSize is the size of the buffers connections read into.
	ReadBufferSize int `config:"readBufferSize"`

	// MaxHeaderSize bounds the size of the request line and headers of a
	// request. Larger requests are rejected as malformed.
	MaxHeaderSize int `config:"maxHeaderSize"`
}

// Address returns the host:port the server binds to.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) withDefaults() Config {
	if c.Backlog == 0 {
		c.Backlog = DefaultBacklog
	}
	if c.InitialTimeout == 0 {
		c.InitialTimeout = DefaultInitialTimeout
	}
	if c.KeepAliveTimeout == 0 {
		c.KeepAliveTimeout = DefaultKeepAliveTimeout
	}
	if c.Loops == 0 {
		c.Loops = 1
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = DefaultReadBufferSize
	}
	if c.MaxHeaderSize == 0 {
		c.MaxHeaderSize = DefaultMaxHeaderSize
	}
	return c
}

// Validate reports every problem with the configuration.
func (c Config) Validate() error {
	var err error
	if c.Port < 0 || c.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("invalid port %d: must be between 0 and 65535", c.Port))
	}
	if c.Backlog < 0 {
		err = multierr.Append(err, fmt.Errorf("invalid backlog %d: must not be negative", c.Backlog))
	}
	if c.InitialTimeout < 0 {
		err = multierr.Append(err, fmt.Errorf("invalid initial timeout %v: must not be negative", c.InitialTimeout))
	}
	if c.KeepAliveTimeout < 0 {
		err = multierr.Append(err, fmt.Errorf("invalid keep-alive timeout %v: must not be negative", c.KeepAliveTimeout))
	}
	if c.Loops < 0 {
		err = multierr.Append(err, fmt.Errorf("invalid number of loops %d: must not be negative", c.Loops))
	}
	if c.ReadBufferSize < 0 {
		err = multierr.Append(err, fmt.Errorf("invalid read buffer size %d: must not be negative", c.ReadBufferSize))
	}
	if c.MaxHeaderSize < 0 {
		err = multierr.Append(err, fmt.Errorf("invalid max header size %d: must not be negative", c.MaxHeaderSize))
	}
	return err
}

// ConfigOption customizes how configuration is loaded.
type ConfigOption func(*configOptions)

type configOptions struct {
	resolver interpolate.VariableResolver
}

// InterpolationResolver sets the function used to look up variables
// referenced by interpolated fields. Environment variables are used by
// default.
func InterpolationResolver(f func(name string) (value string, ok bool)) ConfigOption {
	return func(o *configOptions) {
		o.resolver = f
	}
}

// LoadConfigFromYAML loads a Config from YAML data. Use LoadConfig if you
// have already parsed a map[string]interface{} or
// map[interface{}]interface{}.
func LoadConfigFromYAML(r io.Reader, opts ...ConfigOption) (Config, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return Config{}, err
	}

	var data map[string]interface{}
	if err := yaml.Unmarshal(b, &data); err != nil {
		return Config{}, err
	}
	return LoadConfig(data, opts...)
}

// LoadConfig loads a Config from a map[string]interface{} or
// map[interface{}]interface{}. Unknown keys are rejected.
func LoadConfig(data interface{}, opts ...ConfigOption) (Config, error) {
	o := configOptions{resolver: os.LookupEnv}
	for _, opt := range opts {
		opt(&o)
	}

	var cfg Config
	if data != nil {
		err := mapdecode.Decode(&cfg, data,
			mapdecode.TagName(_tagName),
			mapdecode.FieldHook(interpolateWith(o.resolver)))
		if err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// interpolateWith renders string values of fields tagged with the
// interpolate option before they are decoded.
func interpolateWith(resolver interpolate.VariableResolver) func(reflect.StructField, reflect.Value) (reflect.Value, error) {
	return func(dest reflect.StructField, srcData reflect.Value) (reflect.Value, error) {
		shouldInterpolate := false
		for _, option := range strings.Split(dest.Tag.Get(_tagName), ",")[1:] {
			if option == _interpolateOption {
				shouldInterpolate = true
				break
			}
		}
		if !shouldInterpolate {
			return srcData, nil
		}

		if !srcData.IsValid() {
			return srcData, nil
		}

		// Non-strings, like a port given as a YAML integer, are left alone.
		v, ok := srcData.Interface().(string)
		if !ok {
			return srcData, nil
		}

		s, err := interpolate.Parse(v)
		if err != nil {
			return srcData, fmt.Errorf("failed to parse %q for interpolation: %v", v, err)
		}

		newV, err := s.Render(resolver)
		if err != nil {
			return srcData, fmt.Errorf("failed to render %q with environment variables: %v", v, err)
		}
		return reflect.ValueOf(newV), nil
	}
}
