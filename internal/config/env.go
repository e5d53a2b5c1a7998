package config

import "time"

type AuthSource string

const (
	// AuthJWT verifies HS256 bearer tokens locally.
	AuthJWT AuthSource = "jwt"
	// AuthOAuth2 resolves bearer tokens against the identity provider userinfo endpoint.
	AuthOAuth2 AuthSource = "oauth2"
)

type Auth struct {
	AuthSource AuthSource `mapstructure:"AUTH_SOURCE" default:"jwt"`
	JWTSecret  string     `mapstructure:"AUTH_JWT_SECRET" default:"clinicorder-dev-secret"`
	JWTIssuer  string     `mapstructure:"AUTH_JWT_ISSUER" default:"clinicorder"`
	AdminRole  string     `mapstructure:"AUTH_ADMIN_ROLE" default:"admin"`
}

type Database struct {
	Host     string `mapstructure:"DATABASE_HOST" default:"localhost"`
	Port     int    `mapstructure:"DATABASE_PORT" default:"5432"`
	Name     string `mapstructure:"DATABASE_NAME" default:"clinicorder"`
	User     string `mapstructure:"DATABASE_USER" default:"postgres"`
	Password string `mapstructure:"DATABASE_PASSWORD" default:"clinicorder"`
}

type Redis struct {
	Host     string `mapstructure:"REDIS_HOST" default:"127.0.0.1"`
	Port     int    `mapstructure:"REDIS_PORT" default:"6379"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB" default:"0"`
}

type Server struct {
	Platform     string `mapstructure:"PLATFORM" default:"clinicorder"`
	Service      string `mapstructure:"SERVICE" default:"api"`
	Port         int    `mapstructure:"WEB_PORT" default:"8080"`
	SchedulePort int    `mapstructure:"SCHEDULE_PORT" default:"8081"`
	GrpcPort     int    `mapstructure:"GRPC_PORT" default:"9090"`
	Env          string `mapstructure:"ENV" default:"dev"`
}

type OAuth2 struct {
	ClientID     string   `mapstructure:"OAUTH2_CLIENT_ID"`
	ClientSecret string   `mapstructure:"OAUTH2_CLIENT_SECRET"`
	Scopes       []string `mapstructure:"OAUTH2_SCOPES" default:"[\"openid\",\"profile\",\"email\"]"`
	TokenURL     string   `mapstructure:"OAUTH2_TOKEN_URL" default:"http://localhost:8000/oauth/token"`
	AuthURL      string   `mapstructure:"OAUTH2_AUTH_URL" default:"http://localhost:8000/oauth/authorize"`
	RedirectURL  string   `mapstructure:"OAUTH2_REDIRECT_URL" default:"http://localhost:8080/api/auth/callback"`
	UserInfoURL  string   `mapstructure:"OAUTH2_USERINFO_URL" default:"http://localhost:8000/oauth/userinfo"`
}

type Log struct {
	LogPath  string `mapstructure:"LOG_PATH" default:"./info.log"`
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
}

type Trace struct {
	Version        string `mapstructure:"TRACE_VERSION" default:"0.0.1"`
	TraceEndpoint  string `mapstructure:"TRACE_TRACEENDPOINT" default:""`
	MetricEndpoint string `mapstructure:"TRACE_METRICENDPOINT" default:""`
	Headers        string `mapstructure:"TRACE_HEADERS" default:""`
	Insecure       bool   `mapstructure:"TRACE_INSECURE" default:"true"`
	Stdout         bool   `mapstructure:"TRACE_STDOUT" default:"false"`
}

type Job struct {
	MailQueueName   string `mapstructure:"JOB_MAIL_QUEUE_NAME" default:"clinicorder_mail_queue"`
	NotifyChannel   string `mapstructure:"JOB_NOTIFY_CHANNEL" default:"clinicorder_notify"`
	CalendarKeyBase string `mapstructure:"JOB_CALENDAR_KEY_PREFIX" default:"clinicorder:calendar"`
}

type Mail struct {
	Addr    string        `mapstructure:"MAIL_ADDR" default:"http://127.0.0.1:8025"`
	APIKey  string        `mapstructure:"MAIL_APIKEY"`
	From    string        `mapstructure:"MAIL_FROM" default:"orders@clinicorder.local"`
	Timeout time.Duration `mapstructure:"MAIL_TIMEOUT" default:"10s"`
}

type Schedule struct {
	ArchiveSpec string `mapstructure:"SCHEDULE_ARCHIVE_SPEC" default:"@every 1h"`
}

// Worker carries mail worker tunables read with go-envconfig by the schedule process.
type Worker struct {
	PoolSize   int           `env:"WORKER_POOL_SIZE, default=8"`
	RatePerSec float64       `env:"WORKER_MAIL_RATE, default=5"`
	Burst      int           `env:"WORKER_MAIL_BURST, default=5"`
	PopTimeout time.Duration `env:"WORKER_POP_TIMEOUT, default=5s"`
	MaxRetry   int           `env:"WORKER_MAIL_MAX_RETRY, default=3"`
}
