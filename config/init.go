package config

import (
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

var (
	cfg  = defaultConfig()
	once sync.Once
)

func defaultConfig() *Config {
	return &Config{
		Host:   "0.0.0.0",
		Port:   "8080",
		Prefix: "api",
		Mode:   ModeDebug,
		Log: Log{
			Level:      "info",
			MaxSize:    100,
			MaxBackups: 7,
			MaxAge:     30,
		},
		OTel: OTel{ServiceName: "yqpoint-system"},
		Notify: Notify{
			Channel: "yqpoint:notification",
		},
		Lock: Lock{
			ExpiryMs:     8000,
			Tries:        32,
			RetryDelayMs: 50,
		},
		Semester: Semester{Year: 2021, Semester: "Fall"},
	}
}

// Init 先读取 config.yaml，再用 YQP_ 前缀的环境变量覆盖
func Init() {
	once.Do(func() {
		v := viper.New()
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err == nil {
			if err := v.Unmarshal(cfg); err != nil {
				panic(err)
			}
		} else if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(err)
		}

		if err := envconfig.Process("YQP", cfg); err != nil {
			panic(err)
		}
		cfg.Mode = Mode(strings.ToLower(string(cfg.Mode)))
	})
}

func Get() *Config {
	return cfg
}

// Set 替换全局配置，仅供测试使用
func Set(c *Config) {
	cfg = c
}
