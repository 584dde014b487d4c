package properties

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"
)

const (
	defaultGrpcPort     = 50051
	defaultExportBucket = "file:///tmp/salinity-exports"
)

func RootPath() string {
	return os.Getenv("ROOT_PATH")
}

// DataPath joins elem under ROOT_PATH/data.
func DataPath(elem ...string) string {
	return filepath.Join(append([]string{RootPath(), "data"}, elem...)...)
}

// ExportBucket is a gocloud.dev bucket URL such as file:///data/exports,
// gs://bucket or s3://bucket?region=ap-southeast-1.
func ExportBucket() string {
	if v := os.Getenv("EXPORT_BUCKET"); v != "" {
		return v
	}
	return defaultExportBucket
}

func GrpcPort() int {
	v, err := strconv.Atoi(os.Getenv("GRPC_PORT"))
	if err != nil || v <= 0 {
		return defaultGrpcPort
	}
	return v
}

func LogLevel() logrus.Level {
	lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

func DiscordErrorNotificationUrl() string {
	return os.Getenv("DISCORD_ERROR_NOTIFICATION_URL")
}

func DiscordSuccessNotificationUrl() string {
	return os.Getenv("DISCORD_SUCCESS_NOTIFICATION_URL")
}
