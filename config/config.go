package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

// AppConfig holds the application-level configuration
type AppConfig struct {
	MaxChunkSize int64  `mapstructure:"max_chunk_size"`
	BlobPath     string `mapstructure:"blob_path"`
	MetadataPath string `mapstructure:"metadata_path"`
	UploadPath   string `mapstructure:"upload_path"`
	DownloadPath string `mapstructure:"download_path"`
	Compression  bool   `mapstructure:"compression"`
}

var Config *AppConfig

func LoadConfig(path string) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(path)
	viper.AutomaticEnv()

	// 10,000,000 bytes is the transport's safe per-message attachment limit.
	viper.SetDefault("max_chunk_size", 10_000_000)
	viper.SetDefault("blob_path", "./data/blobs")
	viper.SetDefault("metadata_path", "./data/manifests")
	viper.SetDefault("upload_path", "./upload")
	viper.SetDefault("download_path", "./download")
	viper.SetDefault("compression", true)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("⚠️ Could not read config file, using defaults: %v", err)
	}

	var appConfig AppConfig
	if err := viper.Unmarshal(&appConfig); err != nil {
		log.Fatalf("❌ Unable to decode config into struct: %v", err)
	}

	Config = &appConfig

	fmt.Println("✅ Configuration loaded successfully.")
}
