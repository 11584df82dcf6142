// Package docker inspects docker-compose files to pre-fill database
// settings during project initialization.
package docker

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/pgbranch/pgbranch/internal/pkg/errors"
)

// composeFileNames lists the file names probed during discovery, in order.
var composeFileNames = []string{
	"docker-compose.yml",
	"docker-compose.yaml",
	"compose.yml",
	"compose.yaml",
}

// PostgresService holds the connection settings extracted from a compose
// postgres service. Zero-value fields mean the compose file did not set them.
type PostgresService struct {
	Name     string
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type composeFile struct {
	Services map[string]composeService `yaml:"services"`
}

type composeService struct {
	Image       string    `yaml:"image"`
	Ports       []string  `yaml:"ports"`
	Environment yaml.Node `yaml:"environment"`
}

// FindComposeFile probes dir for a compose file, returning "" when none
// exists.
func FindComposeFile(dir string) string {
	for _, name := range composeFileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// DetectPostgres parses the compose file and returns the first service
// whose image references postgres, or nil when no such service exists.
func DetectPostgres(path string) (*PostgresService, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrFileSystemError, "failed to read compose file").WithContext("path", path)
	}

	var file composeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInvalidConfig, "failed to parse compose file").WithContext("path", path)
	}

	for name, svc := range file.Services {
		if !strings.Contains(svc.Image, "postgres") {
			continue
		}
		result := &PostgresService{
			Name: name,
			Host: "localhost",
			Port: 5432,
		}
		if port, ok := hostPortFor(svc.Ports, 5432); ok {
			result.Port = port
		}
		env := parseEnvironment(svc.Environment)
		result.User = env["POSTGRES_USER"]
		result.Password = env["POSTGRES_PASSWORD"]
		result.Database = env["POSTGRES_DB"]
		return result, nil
	}
	return nil, nil
}

// hostPortFor resolves the host port mapped onto the container port.
// Entries look like "5433:5432", "127.0.0.1:5433:5432", or "5432".
func hostPortFor(ports []string, containerPort int) (int, bool) {
	want := strconv.Itoa(containerPort)
	for _, mapping := range ports {
		// Drop any /tcp or /udp suffix.
		mapping, _, _ = strings.Cut(mapping, "/")
		parts := strings.Split(mapping, ":")
		switch len(parts) {
		case 1:
			if parts[0] == want {
				return containerPort, true
			}
		case 2:
			if parts[1] == want {
				if port, err := strconv.Atoi(parts[0]); err == nil {
					return port, true
				}
			}
		case 3:
			if parts[2] == want {
				if port, err := strconv.Atoi(parts[1]); err == nil {
					return port, true
				}
			}
		}
	}
	return 0, false
}

// parseEnvironment accepts both compose environment shapes: a mapping of
// KEY: value and a sequence of KEY=value strings.
func parseEnvironment(node yaml.Node) map[string]string {
	env := make(map[string]string)
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			env[node.Content[i].Value] = node.Content[i+1].Value
		}
	case yaml.SequenceNode:
		for _, item := range node.Content {
			if key, value, found := strings.Cut(item.Value, "="); found {
				env[key] = value
			}
		}
	}
	return env
}
