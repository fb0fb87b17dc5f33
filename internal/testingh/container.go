// Package testingh starts disposable Redpanda and ClickHouse containers for integration tests.
package testingh

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/ory/dockertest"
	"github.com/ory/dockertest/docker"
)

// Credentials the ClickHouse container is started with.
const (
	ClickhouseDB       = "mmp_test"
	ClickhouseUser     = "mmp"
	ClickhousePassword = "mmp"
)

// ConnectFn is retried with backoff until the service in the container accepts it.
type ConnectFn func(addr string) error

type Container struct {
	resource *dockertest.Resource
	Addr     string
}

type image struct {
	name       string
	repository string
	tag        string
	port       docker.Port
	env        []string
	cmd        func(host string, hostPort int) []string
}

func hostName() string {
	if h := os.Getenv("OVERRIDE_HOSTNAME"); h != "" {
		return h
	}
	return "localhost"
}

func tag(envKey, def string) string {
	if t := os.Getenv(envKey); t != "" {
		return t
	}
	return def
}

// NewRedpanda runs a single-node broker advertised on a free host port.
func NewRedpanda(connectFn ConnectFn) (*Container, error) {
	return run(image{
		name:       "redpanda",
		repository: "redpandadata/redpanda",
		tag:        tag("REDPANDA_TAG", "latest"),
		port:       "9092/tcp",
		cmd: func(host string, hostPort int) []string {
			return []string{
				"redpanda start",
				"--overprovisioned",
				"--smp 1",
				"--memory 1G",
				"--reserve-memory 0M",
				"--node-id 0",
				"--check=false",
				fmt.Sprintf("--advertise-kafka-addr %s:%d", host, hostPort),
			}
		},
	}, connectFn)
}

// NewClickhouse runs a server with ClickhouseDB owned by ClickhouseUser.
func NewClickhouse(connectFn ConnectFn) (*Container, error) {
	return run(image{
		name:       "clickhouse",
		repository: "clickhouse/clickhouse-server",
		tag:        tag("CLICKHOUSE_TAG", "latest-alpine"),
		port:       "9000/tcp",
		env: []string{
			"CLICKHOUSE_DB=" + ClickhouseDB,
			"CLICKHOUSE_DEFAULT_ACCESS_MANAGEMENT=1",
			"CLICKHOUSE_USER=" + ClickhouseUser,
			"CLICKHOUSE_PASSWORD=" + ClickhousePassword,
		},
	}, connectFn)
}

func run(img image, connectFn ConnectFn) (*Container, error) {
	host := hostName()
	hostPort, err := getFreePort()
	if err != nil {
		return nil, fmt.Errorf("could not get free host port: %w", err)
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, fmt.Errorf("could not connect to docker: %w", err)
	}

	opts := &dockertest.RunOptions{
		Repository: img.repository,
		Tag:        img.tag,
		Env:        img.env,
		Auth: docker.AuthConfiguration{
			Username: os.Getenv("ARTIFACTORY_USER"),
			Password: os.Getenv("ARTIFACTORY_PWD"),
		},
		PortBindings: map[docker.Port][]docker.PortBinding{
			img.port: {{
				HostIP:   host,
				HostPort: strconv.Itoa(hostPort),
			}},
		},
	}
	if img.cmd != nil {
		opts.Cmd = img.cmd(host, hostPort)
	}

	resource, err := pool.RunWithOptions(opts, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	if err != nil {
		return nil, fmt.Errorf("could not create %s container: %w", img.name, err)
	}

	c := &Container{
		resource: resource,
		Addr:     fmt.Sprintf("%s:%s", host, resource.GetPort(string(img.port))),
	}
	if err = pool.Retry(func() error {
		return connectFn(c.Addr)
	}); err != nil {
		_ = resource.Close()
		return nil, fmt.Errorf("could not connect to %s: %w", img.name, err)
	}
	return c, nil
}

func (c *Container) Purge() error {
	return c.resource.Close()
}

func getFreePort() (int, error) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
