// Package db implements the PostgreSQL accessor for pgbranch: creating,
// dropping, and listing branch databases cloned from the template database.
package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/pgbranch/pgbranch/internal/pkg/config"
	apperrors "github.com/pgbranch/pgbranch/internal/pkg/errors"
	"github.com/pgbranch/pgbranch/internal/pkg/naming"
)

// adminDatabase is the maintenance database used for admin connections.
const adminDatabase = "postgres"

// PromptFunc asks the user for a password interactively.
type PromptFunc func(user string) (string, error)

// Manager defines the database operations pgbranch consumes. Branch names
// are raw; the manager derives database names through the naming rules.
type Manager interface {
	Ping(ctx context.Context) error
	CreateBranch(ctx context.Context, branch string) error
	DropBranch(ctx context.Context, branch string) error
	ListBranches(ctx context.Context) ([]string, error)
	DatabaseExists(ctx context.Context, name string) (bool, error)
	CleanupOldBranches(ctx context.Context, keep int) error
	CanCreateDatabases(ctx context.Context) (bool, error)
}

// PgxManager implements Manager over a pgx v5 connection per invocation.
type PgxManager struct {
	cfg    *config.Config
	prompt PromptFunc

	// lookupEnv and serviceFile are swapped out in tests.
	lookupEnv   func(string) (string, bool)
	serviceFile string
}

// NewManager creates a PgxManager for the merged configuration. prompt may
// be nil when interactive password entry is unavailable.
func NewManager(cfg *config.Config, prompt PromptFunc) *PgxManager {
	return &PgxManager{
		cfg:       cfg,
		prompt:    prompt,
		lookupEnv: os.LookupEnv,
	}
}

// connect opens an admin connection to the maintenance database.
func (m *PgxManager) connect(ctx context.Context) (*pgx.Conn, error) {
	connString, err := m.buildConnString()
	if err != nil {
		return nil, err
	}

	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, apperrors.NewConnectionError(err)
	}
	return conn, nil
}

// Ping verifies connectivity.
func (m *PgxManager) Ping(ctx context.Context) error {
	conn, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	return conn.Ping(ctx)
}

// CreateBranch creates the branch database from the template database.
// An already-existing database is not an error.
func (m *PgxManager) CreateBranch(ctx context.Context, branch string) error {
	conn, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	dbName := naming.DatabaseName(branch, m.cfg)
	exists, err := m.databaseExists(ctx, conn, dbName)
	if err != nil {
		return err
	}
	if exists {
		apperrors.Info("database %s already exists, skipping creation", dbName)
		return nil
	}

	query := fmt.Sprintf(
		"CREATE DATABASE %s WITH TEMPLATE %s",
		pgx.Identifier{dbName}.Sanitize(),
		pgx.Identifier{m.cfg.Database.TemplateDatabase}.Sanitize(),
	)
	if _, err := conn.Exec(ctx, query); err != nil {
		return apperrors.NewDatabaseError("create", err).WithContext("database", dbName)
	}

	apperrors.Info("created database branch: %s", dbName)
	return nil
}

// DropBranch drops the branch database. A missing database is not an error.
func (m *PgxManager) DropBranch(ctx context.Context, branch string) error {
	conn, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	dbName := naming.DatabaseName(branch, m.cfg)
	exists, err := m.databaseExists(ctx, conn, dbName)
	if err != nil {
		return err
	}
	if !exists {
		apperrors.Info("database %s does not exist, skipping deletion", dbName)
		return nil
	}

	query := fmt.Sprintf("DROP DATABASE %s", pgx.Identifier{dbName}.Sanitize())
	if _, err := conn.Exec(ctx, query); err != nil {
		return apperrors.NewDatabaseError("drop", err).WithContext("database", dbName)
	}

	apperrors.Info("dropped database branch: %s", dbName)
	return nil
}

// ListBranches returns the branch names of all databases carrying the
// configured prefix.
func (m *PgxManager) ListBranches(ctx context.Context) ([]string, error) {
	conn, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close(ctx)

	pattern := m.cfg.Database.DatabasePrefix + "_%"
	rows, err := conn.Query(ctx, "SELECT datname FROM pg_database WHERE datname LIKE $1", pattern)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list", err)
	}
	defer rows.Close()

	var branches []string
	for rows.Next() {
		var dbName string
		if err := rows.Scan(&dbName); err != nil {
			return nil, apperrors.NewDatabaseError("list", err)
		}
		if branch, ok := ExtractBranchName(dbName, m.cfg.Database.DatabasePrefix); ok {
			branches = append(branches, branch)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("list", err)
	}
	return branches, nil
}

// DatabaseExists reports whether a database with the exact name exists.
func (m *PgxManager) DatabaseExists(ctx context.Context, name string) (bool, error) {
	conn, err := m.connect(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close(ctx)
	return m.databaseExists(ctx, conn, name)
}

func (m *PgxManager) databaseExists(ctx context.Context, conn *pgx.Conn, name string) (bool, error) {
	var one int
	err := conn.QueryRow(ctx, "SELECT 1 FROM pg_database WHERE datname = $1", name).Scan(&one)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, apperrors.NewDatabaseError("exists check", err)
	}
	return true, nil
}

// CleanupOldBranches drops prefix-carrying databases beyond the keep count,
// oldest first (creation order approximated by oid).
func (m *PgxManager) CleanupOldBranches(ctx context.Context, keep int) error {
	conn, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	pattern := m.cfg.Database.DatabasePrefix + "_%"
	rows, err := conn.Query(ctx,
		"SELECT datname FROM pg_database WHERE datname LIKE $1 ORDER BY oid DESC OFFSET $2",
		pattern, int64(keep))
	if err != nil {
		return apperrors.NewDatabaseError("cleanup", err)
	}

	var victims []string
	for rows.Next() {
		var dbName string
		if err := rows.Scan(&dbName); err != nil {
			rows.Close()
			return apperrors.NewDatabaseError("cleanup", err)
		}
		victims = append(victims, dbName)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return apperrors.NewDatabaseError("cleanup", err)
	}

	for _, dbName := range victims {
		query := fmt.Sprintf("DROP DATABASE %s", pgx.Identifier{dbName}.Sanitize())
		if _, err := conn.Exec(ctx, query); err != nil {
			return apperrors.NewDatabaseError("cleanup", err).WithContext("database", dbName)
		}
		apperrors.Info("dropped old database branch: %s", dbName)
	}
	return nil
}

// CanCreateDatabases reports whether the connected user holds CREATEDB.
func (m *PgxManager) CanCreateDatabases(ctx context.Context) (bool, error) {
	conn, err := m.connect(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close(ctx)

	var one int
	err = conn.QueryRow(ctx,
		"SELECT 1 FROM pg_user WHERE usename = current_user AND usecreatedb = true").Scan(&one)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, apperrors.NewDatabaseError("permission check", err)
	}
	return true, nil
}

// ExtractBranchName strips the prefix from a database name, reporting
// whether the name carried it.
func ExtractBranchName(dbName, prefix string) (string, bool) {
	full := prefix + "_"
	if strings.HasPrefix(dbName, full) {
		return dbName[len(full):], true
	}
	return "", false
}

// buildConnString assembles the keyword/value connection string for the
// admin connection, resolving the password through the configured auth
// method chain.
func (m *PgxManager) buildConnString() (string, error) {
	parts := []string{
		"host=" + m.cfg.Database.Host,
		"port=" + strconv.Itoa(m.cfg.Database.Port),
		"user=" + m.cfg.Database.User,
	}

	password, err := m.resolvePassword()
	if err != nil {
		return "", err
	}
	if password != "" {
		parts = append(parts, "password="+password)
	}

	parts = append(parts, "dbname="+adminDatabase)
	return strings.Join(parts, " "), nil
}

// resolvePassword walks the configured auth methods in order; the first
// method that yields a password wins. The system method short-circuits with
// no password (peer/trust auth).
func (m *PgxManager) resolvePassword() (string, error) {
	for _, method := range m.cfg.Database.Auth.Methods {
		switch method {
		case config.AuthPassword:
			if m.cfg.Database.Password != "" {
				apperrors.Debug("using password from config")
				return m.cfg.Database.Password, nil
			}
		case config.AuthEnvironment:
			if password := m.passwordFromEnv(); password != "" {
				apperrors.Debug("using password from environment")
				return password, nil
			}
		case config.AuthPgpass:
			password, err := m.passwordFromPgpass()
			if err != nil {
				return "", err
			}
			if password != "" {
				apperrors.Debug("using password from pgpass file")
				return password, nil
			}
		case config.AuthService:
			password, err := m.passwordFromService()
			if err != nil {
				return "", err
			}
			if password != "" {
				apperrors.Debug("using password from service file")
				return password, nil
			}
		case config.AuthPrompt:
			if m.cfg.Database.Auth.PromptForPassword && m.prompt != nil {
				password, err := m.prompt(m.cfg.Database.User)
				if err != nil {
					apperrors.Warn("failed to read password from prompt: %v", err)
					continue
				}
				if password != "" {
					apperrors.Debug("using password from interactive prompt")
					return password, nil
				}
			}
		case config.AuthSystem:
			apperrors.Debug("using system authentication")
			return "", nil
		}
	}

	apperrors.Debug("no password found from any authentication method")
	return "", nil
}

func (m *PgxManager) passwordFromEnv() string {
	if password, ok := m.lookupEnv("PGPASSWORD"); ok {
		return password
	}
	hostVar := "PGPASSWORD_" + strings.ToUpper(m.cfg.Database.Host)
	if password, ok := m.lookupEnv(hostVar); ok {
		return password
	}
	return ""
}

// passwordFromPgpass reads the configured pgpass file, falling back to
// ~/.pgpass. Lines are host:port:database:user:password with * wildcards.
func (m *PgxManager) passwordFromPgpass() (string, error) {
	path := m.cfg.Database.Auth.PgpassFile
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", nil
		}
		path = filepath.Join(home, ".pgpass")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", apperrors.Wrap(err, apperrors.ErrFileSystemError, "failed to read pgpass file").WithContext("path", path)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) != 5 {
			continue
		}
		if m.matchesPgpassEntry(fields[0], fields[1], fields[2], fields[3]) {
			return fields[4], nil
		}
	}
	return "", nil
}

func (m *PgxManager) matchesPgpassEntry(host, port, database, user string) bool {
	hostMatches := host == "*" || host == m.cfg.Database.Host
	portMatches := port == "*" || port == strconv.Itoa(m.cfg.Database.Port)
	databaseMatches := database == "*" || database == adminDatabase
	userMatches := user == "*" || user == m.cfg.Database.User
	return hostMatches && portMatches && databaseMatches && userMatches
}

// passwordFromService reads the password from the configured section of
// ~/.pg_service.conf.
func (m *PgxManager) passwordFromService() (string, error) {
	serviceName := m.cfg.Database.Auth.ServiceName
	if serviceName == "" {
		return "", nil
	}

	path := m.serviceFile
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", nil
		}
		path = filepath.Join(home, ".pg_service.conf")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", apperrors.Wrap(err, apperrors.ErrFileSystemError, "failed to read service file").WithContext("path", path)
	}

	var currentService string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			currentService = line[1 : len(line)-1]
			continue
		}
		if currentService != serviceName {
			continue
		}
		if key, value, found := strings.Cut(line, "="); found && strings.TrimSpace(key) == "password" {
			return strings.TrimSpace(value), nil
		}
	}
	return "", nil
}
