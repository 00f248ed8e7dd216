package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string     `yaml:"env" env-required:"true" env-default:"production"`
	Storage    Storage    `yaml:"storage" env-required:"true"`
	Backup     Backup     `yaml:"backup" env-required:"true"`
	Reward     Reward     `yaml:"reward" env-required:"true"`
	Redis      Redis      `yaml:"redis" env-required:"true"`
	Multicast  Multicast  `yaml:"multicast" env-required:"true"`
	HTTPServer HTTPServer `yaml:"http_server" env-required:"true"`
	JWTSecret  string     `yaml:"jwt_secret" env-required:"true" env-default:"super_secret_key"`
}

type HTTPServer struct {
	Address string `yaml:"address" env-required:"true" env-default:"localhost:8080"`
}

type Storage struct {
	Dir string `yaml:"dir" env-required:"true" env-default:"./data"`
}

type Backup struct {
	Interval time.Duration `yaml:"interval" env-default:"5s"`
}

type Reward struct {
	Interval    time.Duration `yaml:"interval" env-default:"500ms"`
	AuthorShare float64       `yaml:"author_share" env-default:"0.3"`
}

type Redis struct {
	Address string `yaml:"address" env-required:"true" env-default:"localhost:6379"`
}

type Multicast struct {
	Address string `yaml:"address" env-default:"239.255.32.32:44444"`
}

func MustLoad() *Config {
	var configPath string

	configPath = os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to config file")
		flag.Parse()
		configPath = *flags

		if configPath == "" {
			log.Fatal("config path must be provided")
		}
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist at path: %s", configPath)
	}

	var cfg Config

	err := cleanenv.ReadConfig(configPath, &cfg)

	if err != nil {
		log.Fatalf("failed to read config: %s", err)
	}

	return &cfg
}
