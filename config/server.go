package config

import "sync"

var (
	serverOnce   sync.Once
	serverConfig *ServerConfig
)

type ServerConfig struct {
	Addr            string
	MaxUploadSize   int64
	AllowedExts     []string
	ShutdownSeconds int
	StorageBackend  string
	RetentionDays   int
}

// 上传允许的扩展名, 与前端文件选择器的提示保持一致
var defaultAllowedExts = []string{
	".pdf", ".doc", ".docx", ".txt", ".csv", ".xls", ".xlsx", ".md", ".html",
}

func GetServerConfig() *ServerConfig {
	serverOnce.Do(func() {
		loadEnv()
		serverConfig = &ServerConfig{
			Addr:            getenv("SERVER_ADDR", ":8000"),
			MaxUploadSize:   int64(getenvInt("MAX_UPLOAD_MB", 50)) * 1024 * 1024,
			AllowedExts:     defaultAllowedExts,
			ShutdownSeconds: getenvInt("SHUTDOWN_TIMEOUT_SECONDS", 5),
			StorageBackend:  getenv("STORAGE_BACKEND", "minio"),
			RetentionDays:   getenvInt("STORAGE_RETENTION_DAYS", 30),
		}
	})
	return serverConfig
}
