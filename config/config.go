package config

type Mode string

const (
	ModeDebug   Mode = "debug"
	ModeRelease Mode = "release"
)

type Config struct {
	Host     string   `envconfig:"HOST"`
	Port     string   `envconfig:"PORT"`
	Domain   string   `envconfig:"DOMAIN"`
	Prefix   string   `envconfig:"PREFIX"`
	Mode     Mode     `envconfig:"MODE"`
	Mysql    Mysql    `mapstructure:"Mysql"`
	Redis    Redis    `mapstructure:"Redis"`
	JWT      JWT      `mapstructure:"JWT"`
	Log      Log      `mapstructure:"Log"`
	Sentry   Sentry   `mapstructure:"Sentry"`
	OTel     OTel     `mapstructure:"OTel"`
	S3       S3       `mapstructure:"S3"`
	Notify   Notify   `mapstructure:"Notify"`
	Lock     Lock     `mapstructure:"Lock"`
	Semester Semester `mapstructure:"Semester"`
}

type S3 struct {
	Endpoint        string `mapstructure:"endpoint"`
	BaseURL         string `mapstructure:"base_url"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	AccessKey       string `mapstructure:"access_key"`
	SecretAccessKey string `mapstructure:"secret_key"`
	Prefix          string `mapstructure:"prefix"`
	UsePathStyle    bool   `mapstructure:"path_style"`
}

type Mysql struct {
	Host     string `envconfig:"HOST"`
	Port     string `envconfig:"PORT"`
	Username string `envconfig:"USERNAME"`
	Password string `envconfig:"PASSWORD"`
	DBName   string `envconfig:"DB_NAME" mapstructure:"db_name"`
}

type Redis struct {
	Host     string `envconfig:"HOST" mapstructure:"host"`
	Port     string `envconfig:"PORT" mapstructure:"port"`
	Password string `envconfig:"PASSWORD" mapstructure:"password"`
	DB       int    `envconfig:"DB" mapstructure:"db"`
}

type JWT struct {
	AccessSecret string `envconfig:"ACCESS_SECRET" mapstructure:"access_secret"`
	AccessExpire int64  `envconfig:"ACCESS_EXPIRE" mapstructure:"access_expire"`
}

type Log struct {
	FilePath   string `envconfig:"LOG_FILE_PATH" mapstructure:"file_path"`     // 日志文件路径
	Level      string `envconfig:"LOG_LEVEL" mapstructure:"level"`             // 日志级别：debug, info, warn, error
	MaxSize    int    `envconfig:"LOG_MAX_SIZE" mapstructure:"max_size"`       // 日志文件最大大小（MB）
	MaxBackups int    `envconfig:"LOG_MAX_BACKUPS" mapstructure:"max_backups"` // 保留的旧日志文件数
	MaxAge     int    `envconfig:"LOG_MAX_AGE" mapstructure:"max_age"`         // 日志文件保留天数
	Compress   bool   `envconfig:"LOG_COMPRESS" mapstructure:"compress"`       // 是否压缩旧日志文件
}

type Sentry struct {
	Dsn         string  `envconfig:"DSN" mapstructure:"dsn"`
	Environment string  `envconfig:"ENVIRONMENT" mapstructure:"environment"`
	SampleRate  float64 `envconfig:"SAMPLE_RATE" mapstructure:"sample_rate"`
	Tracing     SentryTracing
}

type SentryTracing struct {
	DBSlowThresholdMs    int `mapstructure:"db_slow_threshold_ms"`
	RedisSlowThresholdMs int `mapstructure:"redis_slow_threshold_ms"`
}

type OTel struct {
	Enable      bool   `envconfig:"ENABLE" mapstructure:"enable"`
	ServiceName string `envconfig:"SERVICE_NAME" mapstructure:"service_name"`
	AgentHost   string `envconfig:"AGENT_HOST" mapstructure:"agent_host"`
	AgentPort   string `envconfig:"AGENT_PORT" mapstructure:"agent_port"`
}

// Notify 通知事件的投递目标，两者都为空时事件只写日志
type Notify struct {
	Channel    string `envconfig:"CHANNEL" mapstructure:"channel"`         // Redis 发布频道
	WebhookURL string `envconfig:"WEBHOOK_URL" mapstructure:"webhook_url"` // 外部通知服务地址
}

type Lock struct {
	ExpiryMs     int `envconfig:"EXPIRY_MS" mapstructure:"expiry_ms"`
	Tries        int `envconfig:"TRIES" mapstructure:"tries"`
	RetryDelayMs int `envconfig:"RETRY_DELAY_MS" mapstructure:"retry_delay_ms"`
}

// Semester 当前学年学期，由运维在每学期初修改
type Semester struct {
	Year     int    `envconfig:"YEAR" mapstructure:"year"`
	Semester string `envconfig:"NAME" mapstructure:"semester"` // Fall / Spring
}
