package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wippyai/go-facet/peek"
	"github.com/wippyai/go-facet/shape"
)

type logLevel uint8

const (
	levelDebug logLevel = iota
	levelInfo
	levelWarn
	levelError
)

func init() {
	shape.RegisterEnum(
		shape.Case("debug", levelDebug),
		shape.Case("info", levelInfo),
		shape.Case("warn", levelWarn),
		shape.Case("error", levelError),
	)
}

type tlsConfig struct {
	Cert string
	Key  string `facet:",sensitive"`
}

type listener struct {
	Address string
	Port    uint16
	TLS     *tlsConfig
}

type service struct {
	_        struct{}          `facet:",rename_all=kebab-case"`
	Name     string            `doc:"service name"`
	Level    logLevel          `facet:",default" doc:"log level"`
	Timeout  time.Duration     `facet:",default"`
	Replicas uint32            `facet:",default"`
	Token    string            `facet:",sensitive,default"`
	Labels   map[string]string `facet:",default"`
	Listen   []listener        `facet:",default"`
}

type stopped struct {
	Reason string
	Code   int32
}

type event struct {
	_        struct{} `facet:",oneof,rename_all=snake_case"`
	Started  *struct{ At string }
	Scaled   *uint32
	Stopped  *stopped
	Restored *service
}

// deploy is the argument set of the args subcommand.
type deploy struct {
	Service  string        `facet:",positional" doc:"service to deploy"`
	Target   string        `facet:",positional,default" doc:"environment"`
	Replicas uint32        `facet:",default" doc:"instance count"`
	Level    logLevel      `facet:",default"`
	Wait     time.Duration `facet:"wait,default" doc:"how long to wait for readiness"`
	DryRun   bool          `doc:"print the plan without applying it"`
}

type entry struct {
	name   string
	doc    string
	shape  *shape.Shape
	sample func() peek.Peek
}

var catalog = map[string]entry{}

func register[T any](name, doc string, sample func() T) {
	catalog[name] = entry{
		name:  name,
		doc:   doc,
		shape: shape.Of[T](),
		sample: func() peek.Peek {
			v := sample()
			return peek.New(&v)
		},
	}
}

func init() {
	register("service", "service configuration with listeners and labels", sampleService)
	register("listener", "a single network listener", func() listener {
		return listener{Address: "0.0.0.0", Port: 8080}
	})
	register("event", "lifecycle event, one of several variants", func() event {
		n := uint32(5)
		return event{Scaled: &n}
	})
	register("deploy", "arguments of the args subcommand", func() deploy {
		return deploy{Service: "api", Target: "staging", Replicas: 2, Level: levelInfo, Wait: time.Minute}
	})
}

func sampleService() service {
	return service{
		Name:     "api",
		Level:    levelInfo,
		Timeout:  30 * time.Second,
		Replicas: 3,
		Token:    "s3cr3t",
		Labels:   map[string]string{"team": "core", "tier": "web"},
		Listen: []listener{
			{Address: "0.0.0.0", Port: 443, TLS: &tlsConfig{Cert: "/etc/tls/api.pem", Key: "/etc/tls/api.key"}},
			{Address: "127.0.0.1", Port: 9090},
		},
	}
}

func lookup(name string) (entry, error) {
	e, ok := catalog[name]
	if !ok {
		return entry{}, fmt.Errorf("unknown type %q (known: %s)", name, strings.Join(typeNames(), ", "))
	}
	return e, nil
}

func typeNames() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
