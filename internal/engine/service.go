// Package engine runs catalog and result-set queries against a Synapse serverless SQL endpoint.
package engine

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/azuread"
	"go.uber.org/zap"

	"rowsetstats/pkg/errors"
	"rowsetstats/pkg/models"
)

// Authentication modes
const (
	AuthSQL         = "sql"
	AuthInteractive = "interactive"
	AuthDefault     = "default"
)

const (
	defaultPort    = 1433
	defaultTimeout = 30 * time.Second

	// SQL Server error number for a failed login
	loginFailedNumber = 18456

	// ViewsQuery lists every view with its owning schema and definition text.
	ViewsQuery = "select s.name as SchemaName, o.name as ViewName, m.definition " +
		"from sys.objects o " +
		"join sys.sql_modules m on m.object_id = o.object_id " +
		"join sys.schemas s on o.schema_id = s.schema_id " +
		"where o.type = 'V'"
)

// Service runs catalog queries against a serverless SQL endpoint
type Service struct {
	db        *sql.DB
	config    Config
	connected bool
	logger    *zap.Logger
	open      func(driverName, dsn string) (*sql.DB, error)
}

// Config holds connection settings
type Config struct {
	Server              string
	Port                int
	Database            string
	AuthMode            string
	Username            string
	Password            string
	ApplicationClientID string
	Timeout             time.Duration
}

// NewService creates a new engine service. A nil logger is replaced by a no-op logger.
func NewService(config Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		config: config,
		logger: logger,
		open:   sql.Open,
	}
}

// Connect opens the connection and verifies it with a ping
func (s *Service) Connect(ctx context.Context) error {
	if s.connected {
		return nil
	}

	if err := ValidateConfig(s.config); err != nil {
		return err
	}

	driverName, dsn, err := BuildDSN(s.config)
	if err != nil {
		return err
	}

	db, err := s.open(driverName, dsn)
	if err != nil {
		return errors.ConnectionError("Failed to open engine connection", err).
			WithContext("server", s.config.Server).
			WithContext("database", s.config.Database)
	}

	// One flow, one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	connCtx, cancel := s.connectContext(ctx)
	defer cancel()

	if err := db.PingContext(connCtx); err != nil {
		db.Close()

		if isLoginFailure(err) {
			return errors.AuthenticationError("Authentication failed", err).
				WithContext("server", s.config.Server).
				WithContext("auth_mode", s.config.AuthMode)
		}
		if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(connCtx.Err(), context.DeadlineExceeded) {
			return errors.ConnectionTimeout("Timed out connecting to engine", err).
				WithContext("server", s.config.Server).
				WithContext("timeout", s.config.Timeout.String())
		}

		return errors.ConnectionError("Failed to connect to engine", err).
			WithContext("server", s.config.Server).
			WithContext("database", s.config.Database)
	}

	s.logger.Debug("Connected to engine",
		zap.String("server", s.config.Server),
		zap.String("database", s.config.Database),
		zap.String("auth_mode", s.config.AuthMode))

	s.db = db
	s.connected = true
	return nil
}

// Close closes the database connection. Calling it twice is a no-op.
func (s *Service) Close() error {
	if !s.connected {
		return nil
	}
	s.connected = false

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

// ListViews returns every view in the database with its definition
func (s *Service) ListViews(ctx context.Context) ([]models.View, error) {
	if !s.connected {
		return nil, notConnected()
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, ViewsQuery)
	if err != nil {
		return nil, errors.CatalogError("Failed to list views", ViewsQuery, err)
	}
	defer rows.Close()

	var views []models.View
	for rows.Next() {
		var v models.View
		var definition sql.NullString
		if err := rows.Scan(&v.Schema, &v.Name, &definition); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeResultParsing, "Failed to scan view row")
		}
		// definition is NULL for encrypted modules
		v.Definition = definition.String
		views = append(views, v)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.CatalogError("Failed to iterate views", ViewsQuery, err)
	}

	return views, nil
}

// DescribeColumns returns the result column names of SELECT * FROM clause, in order.
// The clause must already have its single quotes doubled.
func (s *Service) DescribeColumns(ctx context.Context, clause string) ([]string, error) {
	if !s.connected {
		return nil, notConnected()
	}

	command := DescribeCommand(clause)
	s.logger.Debug("Describing result set", zap.String("command", command))

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, command)
	if err != nil {
		return nil, errors.QueryError("Failed to describe result set", command, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeResultParsing, "Failed to read result set header")
	}

	nameIndex := -1
	for i, col := range cols {
		if col == "name" {
			nameIndex = i
			break
		}
	}
	if nameIndex < 0 {
		return nil, errors.New(errors.ErrCodeResultParsing, "Result set has no 'name' column").
			WithContext("columns", strings.Join(cols, ","))
	}

	var names []string
	for rows.Next() {
		values := make([]interface{}, len(cols))
		valuePtrs := make([]interface{}, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeResultParsing, "Failed to scan column description")
		}

		switch name := values[nameIndex].(type) {
		case string:
			names = append(names, name)
		case []byte:
			names = append(names, string(name))
		case nil:
			// unnamed expression columns have no name
		default:
			names = append(names, fmt.Sprint(name))
		}
	}

	if err := rows.Err(); err != nil {
		return nil, errors.QueryError("Failed to describe result set", command, err)
	}

	return names, nil
}

// DescribeCommand builds the sp_describe_first_result_set call for an escaped clause
func DescribeCommand(clause string) string {
	return fmt.Sprintf("EXEC sp_describe_first_result_set N'SELECT * FROM %s AS [q1]'", clause)
}

// BuildDSN returns the driver name and connection URL for config
func BuildDSN(config Config) (string, string, error) {
	port := config.Port
	if port == 0 {
		port = defaultPort
	}

	query := url.Values{}
	query.Set("database", config.Database)
	query.Set("encrypt", "true")
	query.Set("app name", "rowsetstats")
	if config.Timeout > 0 {
		query.Set("connection timeout", strconv.Itoa(int(config.Timeout/time.Second)))
	}

	u := &url.URL{
		Scheme: "sqlserver",
		Host:   fmt.Sprintf("%s:%d", config.Server, port),
	}

	driverName := "sqlserver"
	switch config.AuthMode {
	case AuthSQL:
		u.User = url.UserPassword(config.Username, config.Password)
	case AuthInteractive:
		driverName = azuread.DriverName
		query.Set("fedauth", azuread.ActiveDirectoryInteractive)
		if config.Username != "" {
			u.User = url.User(config.Username)
		}
		query.Set("applicationclientid", config.ApplicationClientID)
	case AuthDefault:
		driverName = azuread.DriverName
		query.Set("fedauth", azuread.ActiveDirectoryDefault)
	default:
		return "", "", errors.ConfigError(fmt.Sprintf("Unknown auth mode %q", config.AuthMode), "engine.auth_mode")
	}

	u.RawQuery = query.Encode()
	return driverName, u.String(), nil
}

// ValidateConfig validates the connection configuration
func ValidateConfig(config Config) error {
	if config.Server == "" {
		return errors.MissingConfig("server is required", "engine.server")
	}
	if config.Database == "" {
		return errors.MissingConfig("database is required", "engine.database")
	}
	switch config.AuthMode {
	case AuthSQL:
		if config.Username == "" {
			return errors.MissingConfig("username is required for sql authentication", "engine.username")
		}
		if config.Password == "" {
			return errors.MissingConfig("password is required for sql authentication", "engine.password")
		}
	case AuthInteractive:
		// azuread refuses ActiveDirectoryInteractive without a public client application
		if config.ApplicationClientID == "" {
			return errors.MissingConfig("application client id is required for interactive authentication", "engine.application_client_id").
				WithSuggestions("Register a public client application in Entra ID and set engine.application_client_id")
		}
	case AuthDefault:
	default:
		return errors.ConfigError(fmt.Sprintf("unknown auth mode %q", config.AuthMode), "engine.auth_mode")
	}
	return nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// connectContext bounds the ping. Interactive sign-in waits on a browser, so it only
// honours the caller's context.
func (s *Service) connectContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.AuthMode == AuthInteractive {
		return context.WithCancel(ctx)
	}
	return s.withTimeout(ctx)
}

func notConnected() *errors.AppError {
	return errors.New(errors.ErrCodeNotConnected, "Not connected to engine").
		WithSuggestions("Call Connect() before running catalog queries")
}

func isLoginFailure(err error) bool {
	var sqlErr mssql.Error
	if stderrors.As(err, &sqlErr) {
		return sqlErr.Number == loginFailedNumber
	}
	return strings.Contains(strings.ToLower(err.Error()), "login failed")
}
