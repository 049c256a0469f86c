package configx

// Config - config interface.
type Config interface {
	GetServiceName() string
	GetVersion() string
	GetEnvironment() string
	GetLoggingConfig() *LoggingConfig
	GetDatabaseConfig() *DatabaseConfig
	GetSandboxConfig() *SandboxConfig
	IsLocalEnvironment() bool
}

// BaseConfig - app config struct.
// This struct represents the base configuration for the library consumers and is expected to be in the following YAML format:
/*
name: "TestApp"
environment: "development"
version: "1.0"
logging:
  level: "debug"
database:
  host: "localhost"
  port: 5432
  name: "main-db"
  user: "postgres"
  password: "password"
  maxConn: 5
sandbox:
  txTimeoutMilli: 60000
  txMaxWaitMilli: 5000
*/
type BaseConfig struct {
	Name        string          `mapstructure:"name"`
	Environment string          `mapstructure:"environment"`
	Version     string          `mapstructure:"version"`
	Logging     *LoggingConfig  `mapstructure:"logging"`
	Database    *DatabaseConfig `mapstructure:"database"`
	Sandbox     *SandboxConfig  `mapstructure:"sandbox"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// DatabaseConfig - connection properties for the database under test.
type DatabaseConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int32  `mapstructure:"port" validate:"required,gt=0"`
	Name     string `mapstructure:"name" validate:"required"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`
	MaxConn  int32  `mapstructure:"maxConn" validate:"gte=0"`
}

// SandboxConfig - options forwarded to the sandbox outer transaction.
type SandboxConfig struct {
	TxTimeoutMilli int64 `mapstructure:"txTimeoutMilli" validate:"gte=0"`
	TxMaxWaitMilli int64 `mapstructure:"txMaxWaitMilli" validate:"gte=0"`
}

func (cfg BaseConfig) GetServiceName() string {
	return cfg.Name
}

func (cfg BaseConfig) GetVersion() string {
	return cfg.Version
}

func (cfg BaseConfig) GetEnvironment() string {
	return cfg.Environment
}

func (cfg BaseConfig) IsLocalEnvironment() bool {
	return checkIfLocalEnv(cfg.Environment)
}

func (cfg BaseConfig) GetLoggingConfig() *LoggingConfig {
	return cfg.Logging
}

func (cfg BaseConfig) GetDatabaseConfig() *DatabaseConfig {
	return cfg.Database
}

func (cfg BaseConfig) GetSandboxConfig() *SandboxConfig {
	return cfg.Sandbox
}
