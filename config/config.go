package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	RemBG  RemBGConfig  `mapstructure:"rembg"`
	Limits LimitsConfig `mapstructure:"limits"`
}

type ServerConfig struct {
	Host        string        `mapstructure:"host"`
	Port        string        `mapstructure:"port"`
	Mode        string        `mapstructure:"mode"`
	Timeout     time.Duration `mapstructure:"timeout"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

type RemBGConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Model         string        `mapstructure:"model"`
	Timeout       time.Duration `mapstructure:"timeout"`
	ProbeInterval time.Duration `mapstructure:"probe_interval"`
}

type LimitsConfig struct {
	MaxCanvasPixels int   `mapstructure:"max_canvas_pixels"`
	MaxUploadBytes  int64 `mapstructure:"max_upload_bytes"`
}

func LoadConfig() (*viper.Viper, error) {
	viperInstance := viper.New()

	viperInstance.AddConfigPath("./config")
	viperInstance.SetConfigName("config")
	viperInstance.SetConfigType("yaml")

	viperInstance.SetDefault("server.host", "0.0.0.0")
	viperInstance.SetDefault("server.port", "5000")
	viperInstance.SetDefault("server.mode", "release")
	viperInstance.SetDefault("server.timeout", 120*time.Second)
	viperInstance.SetDefault("server.idle_timeout", 60*time.Second)
	viperInstance.SetDefault("rembg.model", "BiRefNet")
	viperInstance.SetDefault("rembg.timeout", 60*time.Second)
	viperInstance.SetDefault("rembg.probe_interval", 30*time.Second)
	viperInstance.SetDefault("limits.max_canvas_pixels", 64_000_000)
	viperInstance.SetDefault("limits.max_upload_bytes", 10<<20)

	if err := viperInstance.ReadInConfig(); err != nil {
		// 配置文件缺失时使用默认值，其他错误照常上报
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}
	return viperInstance, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}

	// 部署平台通过 PORT 注入监听端口
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Port = port
	}
	if url := os.Getenv("REMBG_BASE_URL"); url != "" {
		c.RemBG.BaseURL = url
	}
	return &c, nil
}
